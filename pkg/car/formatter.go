// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import "fmt"

// FormatCommand formats a command into a human-readable string
func FormatCommand(cmd Command) string {
	result := FormatOpcode(cmd.Opcode)
	if cmd.Handle != "" {
		result += " " + cmd.Handle
	}
	result += fmt.Sprintf(" (N=%d", cmd.Opcode)
	if cmd.D1 != nil {
		result += fmt.Sprintf(", D1=%d", *cmd.D1)
	}
	if cmd.D2 != nil {
		result += fmt.Sprintf(", D2=%d", *cmd.D2)
	}
	return result + ")"
}

// FormatOpcode returns the human-readable name for a command opcode
func FormatOpcode(opcode int) string {
	switch opcode {
	case OpSetHead:
		return "SET_HEAD"
	case OpModuleQuery:
		return "MODULE_QUERY"
	case OpIRQuery:
		return "IR_QUERY"
	case OpGroundQuery:
		return "GROUND_QUERY"
	case OpStop:
		return "STOP"
	case OpSetMode:
		return "SET_MODE"
	case OpMove:
		return "MOVE"
	case OpClearState:
		return "CLEAR_STATES"
	case OpMPURequest:
		return "MPU_REQUEST"
	default:
		return "UNKNOWN"
	}
}

// FormatDirection returns the human-readable name for a motion direction
func FormatDirection(dir Direction) string {
	switch dir {
	case DirForward:
		return "FORWARD"
	case DirBackward:
		return "BACKWARD"
	case DirLeft:
		return "LEFT"
	case DirRight:
		return "RIGHT"
	case DirForwardLeft:
		return "FORWARD_LEFT"
	case DirBackwardLeft:
		return "BACKWARD_LEFT"
	case DirForwardRight:
		return "FORWARD_RIGHT"
	case DirBackwardRight:
		return "BACKWARD_RIGHT"
	default:
		return "UNKNOWN"
	}
}

// FormatMode returns the human-readable name for a firmware operation mode
func FormatMode(mode Mode) string {
	switch mode {
	case ModeTracking:
		return "TRACKING"
	case ModeObstacleAvoidance:
		return "OBSTACLE_AVOIDANCE"
	case ModeFollow:
		return "FOLLOW"
	default:
		return "UNKNOWN"
	}
}

// FormatSample formats an MPU sample into a one-line human-readable string
func FormatSample(s Sample) string {
	return fmt.Sprintf("t=%.3fs a=[%.4f %.4f %.4f]g w=[%.2f %.2f %.2f]deg/s",
		s.T, s.Accel.X, s.Accel.Y, s.Accel.Z, s.Gyro.X, s.Gyro.Y, s.Gyro.Z)
}

// FormatIRReadings formats the three line-tracking readings on one line
func FormatIRReadings(r IRReadings) string {
	return fmt.Sprintf("L=%d M=%d R=%d", r.Left, r.Middle, r.Right)
}

// FormatDistance formats a calibrated ultrasonic distance
func FormatDistance(cm float64) string {
	return fmt.Sprintf("%.1f cm", cm)
}
