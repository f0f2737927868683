// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

// Package car provides a Go controller for the Elegoo Smart Robot Car v4.
//
// The stock firmware exposes a JSON command protocol on TCP port 100 of the
// car's WiFi access point. Commands are unframed JSON objects; confirmations
// and sensor replies come back as brace-delimited tokens interleaved with
// heartbeat noise on the same stream. This package provides command building
// and encoding, reply matching, motion state tracking, and the higher level
// maneuvers built on top of them (gyro-integrated turns, ultrasonic
// direction scans, homing).
package car

import "time"

// Command opcodes (the N field)
const (
	OpSetHead     = 5    // head servo positioning
	OpModuleQuery = 21   // ultrasonic module, selector in D1
	OpIRQuery     = 22   // line-tracking IR sensors, sensor index in D1
	OpGroundQuery = 23   // ground contact check from the IR array
	OpStop        = 100  // stop the wheels
	OpSetMode     = 101  // switch firmware operation mode
	OpMove        = 102  // wheel motion, direction in D1, speed in D2
	OpClearState  = 110  // abort running firmware routines
	OpMPURequest  = 1000 // request one MPU-6050 sample
)

// Ultrasonic module query selectors (D1 for OpModuleQuery)
const (
	QueryObstacle = 1
	QueryDistance = 2
)

// Direction selects a wheel motion direction (D1 for OpMove)
type Direction int

// Motion direction values
const (
	DirForward       Direction = 1
	DirBackward      Direction = 2
	DirLeft          Direction = 3
	DirRight         Direction = 4
	DirForwardLeft   Direction = 5
	DirBackwardLeft  Direction = 6
	DirForwardRight  Direction = 7
	DirBackwardRight Direction = 8
)

// Mode selects a firmware operation mode (D1 for OpSetMode)
type Mode int

// Operation mode values
const (
	ModeTracking          Mode = 1
	ModeObstacleAvoidance Mode = 2
	ModeFollow            Mode = 3
)

// IRSensor selects one of the line-tracking sensors (D1 for OpIRQuery)
type IRSensor int

// IR sensor indices, left to right seen from behind the car
const (
	IRLeft   IRSensor = 0
	IRMiddle IRSensor = 1
	IRRight  IRSensor = 2
)

// Wire handles for stateful commands
const (
	HandleStop    = "stop"
	HandleSetHead = "set_head"
)

// Request handle prefixes. A random integer suffix makes each request
// unique so that its reply can be told apart on the shared stream.
const (
	mpuRequestPrefix        = "MPU_Request_"
	ultrasonicRequestPrefix = "Ultrasonic_Value_Request_"
	obstacleRequestPrefix   = "Check_Obstacle_"
	irRequestPrefix         = "IR_"
	groundRequestPrefix     = "Leaves_the_ground_"
	clearStatesPrefix       = "clear_all_states_"
)

// Noise tokens the firmware interleaves with replies
const (
	heartbeatToken = "{Heartbeat}"
	okToken        = "{ok}"
)

// MPU-6050 quantization. The firmware reports raw 16 bit register values;
// full scale is +/-2g for the accelerometer and +/-250 deg/s for the gyro.
const (
	numQuantSteps = 1 << 16
	AccelQuantum  = 4.0 / numQuantSteps   // g per count
	GyroQuantum   = 500.0 / numQuantSteps // deg/s per count
)

// Head servo geometry. The driver API uses 0 = front with positive angles
// counterclockwise (left); the servo itself uses 0 = right, 90 = front,
// 180 = left.
const (
	HeadServoOffset = 90
	MinHeadAngle    = -80
	MaxHeadAngle    = 80
)

// Connection defaults for the stock firmware access point
const (
	DefaultHost    = "192.168.4.1"
	DefaultPort    = 100
	DefaultTimeout = 2 * time.Second
)

// recvChunkSize is the read buffer size for the reply stream.
const recvChunkSize = 4096

// DefaultSpeed is the wheel speed used when the caller does not pick one.
// Speeds are in the firmware's [0,255] PWM range.
const DefaultSpeed = 50

// TurnSpeed is the wheel speed for gyro-controlled in-place turns. Faster
// turns cover too much angle between MPU samples for accurate control.
const TurnSpeed = 50

// CalibrationSamples is the number of MPU reads averaged into the bias
// offsets. The car must sit still while they are taken.
const CalibrationSamples = 30

// Default ultrasonic regression coefficients (real = q + m*sensor),
// fitted against tape measure ground truth.
const (
	DefaultUltrasonicQ = -0.37779223
	DefaultUltrasonicM = 1.26030353
)

// Direction scan geometry. The step is settable but always snaps to a
// multiple of minScanStep.
const (
	DefaultScanStep = 10
	minScanStep     = 10
)

// Homing thresholds
const (
	homingAngleTolerance   = 10 // deg; smaller angles count as aligned
	homingMinClearance     = 30 // cm; shorter clearances force a pivot
	homingPivotAngle       = 90
	homingRescanHalfWidth  = 30 // deg; refinement scans cover +/- this
	homingMaxTrials        = 4
	homingMaxForwardTrials = 3
)
