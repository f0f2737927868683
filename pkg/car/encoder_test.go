// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import "testing"

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "stop",
			cmd:  NewStopCommand(),
			want: `{"H": "stop", "N": 100}`,
		},
		{
			name: "forward before relabeling",
			cmd:  NewMoveCommand(DirForward, 40),
			want: `{"H": "fw", "N": 102, "D1": 1, "D2": 40}`,
		},
		{
			name: "forward with state label",
			cmd:  Command{Handle: "fw_40", Opcode: OpMove, D1: ptr(1), D2: ptr(40)},
			want: `{"H": "fw_40", "N": 102, "D1": 1, "D2": 40}`,
		},
		{
			name: "set head",
			cmd:  NewSetHeadCommand(130),
			want: `{"H": "set_head", "N": 5, "D1": 1, "D2": 130}`,
		},
		{
			name: "set mode omits the handle",
			cmd:  NewSetModeCommand(ModeTracking),
			want: `{"N": 101, "D1": 1}`,
		},
		{
			name: "mpu request",
			cmd:  NewMPURequest(7),
			want: `{"H": "MPU_Request_7", "N": 1000}`,
		},
		{
			name: "ultrasonic request",
			cmd:  NewUltrasonicRequest(12),
			want: `{"H": "Ultrasonic_Value_Request_12", "N": 21, "D1": 2}`,
		},
		{
			name: "handle with JSON metacharacters",
			cmd:  Command{Handle: `a"b\c`, Opcode: 1},
			want: `{"H": "a\"b\\c", "N": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(EncodeCommand(tt.cmd)); got != tt.want {
				t.Errorf("EncodeCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeCommand_NegativeArguments(t *testing.T) {
	cmd := Command{Handle: "x", Opcode: 21, D1: ptr(-3)}

	want := `{"H": "x", "N": 21, "D1": -3}`
	if got := string(EncodeCommand(cmd)); got != want {
		t.Errorf("EncodeCommand() = %q, want %q", got, want)
	}
}
