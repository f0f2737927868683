// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"regexp"
	"strconv"
)

// Command builder functions create Command structs ready for encoding.
// Builders that take an id embed it in the handle so the reply to that
// particular request can be matched on the shared stream.

// Command is a single firmware command. Handle is the H field; commands
// without a handle leave it empty. D1 and D2 are optional and omitted
// from the wire when nil.
type Command struct {
	Handle string
	Opcode int
	D1     *int
	D2     *int
}

// NewMoveCommand creates a wheel motion command (N=102).
// Speed is in the firmware's [0,255] PWM range.
func NewMoveCommand(dir Direction, speed int) Command {
	return Command{
		Handle: directionHandle(dir),
		Opcode: OpMove,
		D1:     intp(int(dir)),
		D2:     intp(speed),
	}
}

// NewStopCommand creates a stop command (N=100).
func NewStopCommand() Command {
	return Command{Handle: HandleStop, Opcode: OpStop}
}

// NewSetHeadCommand creates a head servo command (N=5).
// servoAngle is in servo coordinates: 0 = right, 90 = front, 180 = left.
func NewSetHeadCommand(servoAngle int) Command {
	return Command{
		Handle: HandleSetHead,
		Opcode: OpSetHead,
		D1:     intp(1),
		D2:     intp(servoAngle),
	}
}

// NewSetModeCommand creates an operation mode switch (N=101). This is the
// only command without a handle; the firmware never confirms it.
func NewSetModeCommand(mode Mode) Command {
	return Command{Opcode: OpSetMode, D1: intp(int(mode))}
}

// NewMPURequest creates an MPU sample request (N=1000). The reply is a
// JSON object carrying the request handle as its id.
func NewMPURequest(id uint32) Command {
	return Command{Handle: mpuRequestPrefix + formatID(id), Opcode: OpMPURequest}
}

// NewUltrasonicRequest creates an ultrasonic distance request (N=21, D1=2).
// The reply token carries the raw sensor reading.
func NewUltrasonicRequest(id uint32) Command {
	return Command{
		Handle: ultrasonicRequestPrefix + formatID(id),
		Opcode: OpModuleQuery,
		D1:     intp(QueryDistance),
	}
}

// NewObstacleRequest creates an obstacle check request (N=21, D1=1).
// The reply token carries true or false.
func NewObstacleRequest(id uint32) Command {
	return Command{
		Handle: obstacleRequestPrefix + formatID(id),
		Opcode: OpModuleQuery,
		D1:     intp(QueryObstacle),
	}
}

// NewIRRequest creates a line-tracking sensor read request (N=22).
// The sensor index appears both in D1 and in the handle.
func NewIRRequest(sensor IRSensor, id uint32) Command {
	return Command{
		Handle: irRequestPrefix + strconv.Itoa(int(sensor)) + "_" + formatID(id),
		Opcode: OpIRQuery,
		D1:     intp(int(sensor)),
	}
}

// NewGroundCheckRequest creates a ground contact check request (N=23).
// The reply token carries true when the car has been lifted.
func NewGroundCheckRequest(id uint32) Command {
	return Command{Handle: groundRequestPrefix + formatID(id), Opcode: OpGroundQuery}
}

// NewClearStatesCommand creates a clear-all-states command (N=110).
// Unlike motion commands it is confirmed with an _ok token.
func NewClearStatesCommand(id uint32) Command {
	return Command{Handle: clearStatesPrefix + formatID(id), Opcode: OpClearState}
}

// StateLabel returns the motion state label of a command: the handle with
// the D2 argument appended when present. The firmware echoes this label
// inside the _ok confirmation token, so labeled commands are sent with
// their handle rewritten to the label.
func StateLabel(cmd Command) string {
	if cmd.D2 == nil {
		return cmd.Handle
	}
	return cmd.Handle + "_" + strconv.Itoa(*cmd.D2)
}

// NeedsConfirmation reports whether the firmware answers the command with
// an _ok token. Wheel motion commands and stop are fire-and-forget, and
// commands without a handle have nothing to confirm.
func NeedsConfirmation(cmd Command) bool {
	switch cmd.Handle {
	case "", HandleStop, "fw", "bw", "l", "r", "fl", "fr", "bl", "br":
		return false
	}
	return true
}

// ConfirmationToken returns the reply token confirming the given state
// label.
func ConfirmationToken(label string) string {
	return "{" + label + "_ok}"
}

// confirmationPattern compiles the literal match for a confirmation
// token. Labels may carry digits and underscores only, but QuoteMeta
// keeps the compile safe for any input.
func confirmationPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(ConfirmationToken(label)))
}

// directionHandle returns the wire handle for a motion direction.
func directionHandle(dir Direction) string {
	switch dir {
	case DirForward:
		return "fw"
	case DirBackward:
		return "bw"
	case DirLeft:
		return "l"
	case DirRight:
		return "r"
	case DirForwardLeft:
		return "fl"
	case DirBackwardLeft:
		return "bl"
	case DirForwardRight:
		return "fr"
	case DirBackwardRight:
		return "br"
	default:
		return ""
	}
}

func formatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

func intp(v int) *int {
	return &v
}
