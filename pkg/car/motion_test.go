// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import "testing"

func TestFlushEmpty(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	// An empty flush stops the car even when the tracked state already
	// reads stop, so a lost frame cannot leave the wheels spinning.
	for i := 0; i < 2; i++ {
		if err := d.Flush(); err != nil {
			t.Fatalf("Flush %d failed: %v", i, err)
		}
	}

	if got := len(sim.writes); got != 2 {
		t.Fatalf("sent %d frames, want 2", got)
	}
	for i, frame := range sim.writes {
		if want := `{"H": "stop", "N": 100}`; frame != want {
			t.Errorf("frame %d = %s, want %s", i, frame, want)
		}
	}
	if got := d.State(); got != HandleStop {
		t.Errorf("State = %q, want %q", got, HandleStop)
	}
}

func TestFlushSingle(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	if err := d.Forward(40, true); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if got := len(sim.writes); got != 0 {
		t.Fatalf("queued command sent %d frames before the flush", got)
	}

	if err := d.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := len(sim.writes); got != 1 {
		t.Fatalf("sent %d frames, want 1", got)
	}
	if got, want := sim.writes[0], `{"H": "fw_40", "N": 102, "D1": 1, "D2": 40}`; got != want {
		t.Errorf("frame = %s, want %s", got, want)
	}
	if got := d.State(); got != "fw_40" {
		t.Errorf("State = %q, want %q", got, "fw_40")
	}
}

func TestFlushMany(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	if err := d.Forward(40, false); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	sim.writes = nil

	// Conflicting commands in one tick are ambiguous and the whole batch
	// is discarded without touching the car.
	d.Enqueue(NewMoveCommand(DirForward, 50))
	d.Enqueue(NewMoveCommand(DirLeft, 50))
	d.Enqueue(NewStopCommand())
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if got := len(sim.writes); got != 0 {
		t.Errorf("discarding flush sent %d frames, want 0", got)
	}
	if got := d.State(); got != "fw_40" {
		t.Errorf("State = %q, want %q", got, "fw_40")
	}

	// The queue must be empty again: the next flush is an empty one.
	if err := d.Flush(); err != nil {
		t.Fatalf("second Flush failed: %v", err)
	}
	if got := len(sim.writes); got != 1 {
		t.Errorf("sent %d frames after the discard, want 1", got)
	}
}

func TestEmergencyStop(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	if err := d.Forward(40, true); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if err := d.EmergencyStop(); err != nil {
		t.Fatalf("EmergencyStop failed: %v", err)
	}

	// The queued move is gone and the only frame on the wire is the stop.
	if got := len(sim.writes); got != 1 {
		t.Fatalf("sent %d frames, want 1", got)
	}
	if got, want := sim.writes[0], `{"H": "stop", "N": 100}`; got != want {
		t.Errorf("frame = %s, want %s", got, want)
	}
	if got := d.State(); got != HandleStop {
		t.Errorf("State = %q, want %q", got, HandleStop)
	}

	// The next flush sees an empty queue, not the discarded move.
	sim.writes = nil
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got, want := sim.writes[0], `{"H": "stop", "N": 100}`; got != want {
		t.Errorf("frame = %s, want %s", got, want)
	}
}

func TestApplyDeduplicates(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	for i := 0; i < 2; i++ {
		if err := d.Forward(40, false); err != nil {
			t.Fatalf("Forward %d failed: %v", i, err)
		}
	}

	if got := len(sim.writes); got != 1 {
		t.Errorf("sent %d frames, want 1", got)
	}
}

func TestLazyStop(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	if err := d.Stop(true); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if got := len(sim.writes); got != 1 {
		t.Fatalf("sent %d frames, want 1", got)
	}
	if got, want := sim.writes[0], `{"H": "stop", "N": 100}`; got != want {
		t.Errorf("frame = %s, want %s", got, want)
	}
	if got := d.State(); got != HandleStop {
		t.Errorf("State = %q, want %q", got, HandleStop)
	}

	// A queued stop goes through Apply, so unlike an empty flush it is
	// deduplicated against the current state.
	sim.writes = nil
	if err := d.Stop(true); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("second Flush failed: %v", err)
	}
	if got := len(sim.writes); got != 0 {
		t.Errorf("duplicate stop sent %d frames, want 0", got)
	}
}

func TestSetHeadAngle(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	if err := d.SetHeadAngle(45, false); err != nil {
		t.Fatalf("SetHeadAngle failed: %v", err)
	}
	if got, want := sim.writes[0], `{"H": "set_head_135", "N": 5, "D1": 1, "D2": 135}`; got != want {
		t.Errorf("frame = %s, want %s", got, want)
	}
	if got := d.HeadAngle(); got != 45 {
		t.Errorf("HeadAngle = %d, want 45", got)
	}
	if got := d.State(); got != "set_head_135" {
		t.Errorf("State = %q, want %q", got, "set_head_135")
	}

	// Pointing the head where it already points sends nothing.
	sim.writes = nil
	if err := d.SetHeadAngle(45, false); err != nil {
		t.Fatalf("repeated SetHeadAngle failed: %v", err)
	}
	if got := len(sim.writes); got != 0 {
		t.Errorf("duplicate angle sent %d frames, want 0", got)
	}
}

func TestSetHeadAngle_Clamp(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	if err := d.SetHeadAngle(-200, false); err != nil {
		t.Fatalf("SetHeadAngle failed: %v", err)
	}
	if got, want := sim.writes[0], `{"H": "set_head_10", "N": 5, "D1": 1, "D2": 10}`; got != want {
		t.Errorf("frame = %s, want %s", got, want)
	}
	if got := d.HeadAngle(); got != MinHeadAngle {
		t.Errorf("HeadAngle = %d, want %d", got, MinHeadAngle)
	}

	if err := d.SetHeadAngle(200, false); err != nil {
		t.Fatalf("SetHeadAngle failed: %v", err)
	}
	if got, want := sim.writes[1], `{"H": "set_head_170", "N": 5, "D1": 1, "D2": 170}`; got != want {
		t.Errorf("frame = %s, want %s", got, want)
	}
	if got := d.HeadAngle(); got != MaxHeadAngle {
		t.Errorf("HeadAngle = %d, want %d", got, MaxHeadAngle)
	}
}

func TestSetHeadAngle_Lazy(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	if err := d.SetHeadAngle(30, true); err != nil {
		t.Fatalf("SetHeadAngle failed: %v", err)
	}
	if got := len(sim.writes); got != 0 {
		t.Fatalf("queued command sent %d frames before the flush", got)
	}
	if got := d.HeadAngle(); got != 0 {
		t.Errorf("HeadAngle = %d before the flush, want 0", got)
	}

	if err := d.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got, want := sim.writes[0], `{"H": "set_head_120", "N": 5, "D1": 1, "D2": 120}`; got != want {
		t.Errorf("frame = %s, want %s", got, want)
	}
	if got := d.HeadAngle(); got != 30 {
		t.Errorf("HeadAngle = %d, want 30", got)
	}
}

func TestTurnHead(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	if err := d.SetHeadAngle(20, false); err != nil {
		t.Fatalf("SetHeadAngle failed: %v", err)
	}
	if err := d.TurnHead(-30, false); err != nil {
		t.Fatalf("TurnHead failed: %v", err)
	}

	if got := d.HeadAngle(); got != -10 {
		t.Errorf("HeadAngle = %d, want -10", got)
	}
	if got, want := sim.writes[1], `{"H": "set_head_80", "N": 5, "D1": 1, "D2": 80}`; got != want {
		t.Errorf("frame = %s, want %s", got, want)
	}
}

func TestForwardUntil(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	calls := 0
	err := d.ForwardUntil(func() bool {
		calls++
		return calls >= 3
	}, 60)
	if err != nil {
		t.Fatalf("ForwardUntil failed: %v", err)
	}

	if calls != 3 {
		t.Errorf("polled %d times, want 3", calls)
	}
	if got := len(sim.writes); got != 2 {
		t.Fatalf("sent %d frames, want 2", got)
	}
	if got, want := sim.writes[0], `{"H": "fw_60", "N": 102, "D1": 1, "D2": 60}`; got != want {
		t.Errorf("frame 0 = %s, want %s", got, want)
	}
	if got, want := sim.writes[1], `{"H": "stop", "N": 100}`; got != want {
		t.Errorf("frame 1 = %s, want %s", got, want)
	}
	if got := d.State(); got != HandleStop {
		t.Errorf("State = %q, want %q", got, HandleStop)
	}
}

func TestMoveStateLabels(t *testing.T) {
	tests := []struct {
		name string
		move func(d *Driver) error
		want string
	}{
		{"forward", func(d *Driver) error { return d.Forward(40, false) }, "fw_40"},
		{"backward", func(d *Driver) error { return d.Backward(40, false) }, "bw_40"},
		{"left", func(d *Driver) error { return d.Left(40, false) }, "l_40"},
		{"right", func(d *Driver) error { return d.Right(40, false) }, "r_40"},
		{"forward left", func(d *Driver) error { return d.ForwardLeft(40, false) }, "fl_40"},
		{"forward right", func(d *Driver) error { return d.ForwardRight(40, false) }, "fr_40"},
		{"backward left", func(d *Driver) error { return d.BackwardLeft(40, false) }, "bl_40"},
		{"backward right", func(d *Driver) error { return d.BackwardRight(40, false) }, "br_40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDryRun()
			if err := tt.move(d); err != nil {
				t.Fatalf("move failed: %v", err)
			}
			if got := d.State(); got != tt.want {
				t.Errorf("State = %q, want %q", got, tt.want)
			}
		})
	}
}
