// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

// Apply executes one movement command against the car and updates the
// tracked state. The command's handle is rewritten to its state label
// (handle plus magnitude, for example "fw_40") before going on the wire.
// A command whose label equals the current state is dropped without
// sending anything. Commands outside the fire-and-forget set block until
// the car confirms with "{<label>_ok}".
func (d *Driver) Apply(cmd Command) error {
	label := StateLabel(cmd)
	needsConfirmation := NeedsConfirmation(cmd)
	isSetHead := cmd.Handle == HandleSetHead
	if label == d.state {
		return nil
	}
	wire := cmd
	wire.Handle = label
	if err := d.send(wire); err != nil {
		return err
	}
	if needsConfirmation {
		if _, err := d.await(confirmationPattern(label)); err != nil {
			return err
		}
		d.stats.RecordConfirmation()
	}
	if isSetHead && cmd.D2 != nil {
		d.headAngle = *cmd.D2 - HeadServoOffset
	}
	d.state = label
	return nil
}

// Enqueue buffers a movement command for a later Flush without sending
// anything.
func (d *Driver) Enqueue(cmd Command) {
	d.queue = append(d.queue, cmd)
}

// Flush drains the lazy queue. An empty queue means the caller had no
// movement intent this tick, so the car is stopped. More than one queued
// command is ambiguous and the whole batch is discarded unsent, because
// the car cannot execute two motions at once. A single command is applied
// normally.
func (d *Driver) Flush() error {
	switch n := len(d.queue); {
	case n == 0:
		return d.sendStop()
	case n > 1:
		d.queue = d.queue[:0]
		return nil
	}
	cmd := d.queue[0]
	d.queue = d.queue[:0]
	return d.Apply(cmd)
}

// sendStop issues the stop frame even when the tracked state already
// reads stop. An empty flush must halt the car unconditionally.
func (d *Driver) sendStop() error {
	cmd := NewStopCommand()
	if err := d.send(cmd); err != nil {
		return err
	}
	d.state = HandleStop
	return nil
}

// EmergencyStop drops any queued motion and halts the wheels, even when
// the tracked state already reads stop. Use it when an external
// condition, a lift off the ground for example, overrides whatever the
// caller queued this tick.
func (d *Driver) EmergencyStop() error {
	d.queue = d.queue[:0]
	return d.sendStop()
}

func (d *Driver) process(cmd Command, lazy bool) error {
	if lazy {
		d.Enqueue(cmd)
		return nil
	}
	return d.Apply(cmd)
}

// Forward drives straight ahead at the given speed in [0,255]. With lazy
// set, the command is queued until the next Flush.
func (d *Driver) Forward(speed int, lazy bool) error {
	return d.process(NewMoveCommand(DirForward, speed), lazy)
}

// Backward drives straight back at the given speed in [0,255].
func (d *Driver) Backward(speed int, lazy bool) error {
	return d.process(NewMoveCommand(DirBackward, speed), lazy)
}

// Left rotates in place counterclockwise at the given speed in [0,255].
func (d *Driver) Left(speed int, lazy bool) error {
	return d.process(NewMoveCommand(DirLeft, speed), lazy)
}

// Right rotates in place clockwise at the given speed in [0,255].
func (d *Driver) Right(speed int, lazy bool) error {
	return d.process(NewMoveCommand(DirRight, speed), lazy)
}

// ForwardLeft veers left while moving forward.
func (d *Driver) ForwardLeft(speed int, lazy bool) error {
	return d.process(NewMoveCommand(DirForwardLeft, speed), lazy)
}

// ForwardRight veers right while moving forward.
func (d *Driver) ForwardRight(speed int, lazy bool) error {
	return d.process(NewMoveCommand(DirForwardRight, speed), lazy)
}

// BackwardLeft veers left while moving backward.
func (d *Driver) BackwardLeft(speed int, lazy bool) error {
	return d.process(NewMoveCommand(DirBackwardLeft, speed), lazy)
}

// BackwardRight veers right while moving backward.
func (d *Driver) BackwardRight(speed int, lazy bool) error {
	return d.process(NewMoveCommand(DirBackwardRight, speed), lazy)
}

// Stop halts the wheels.
func (d *Driver) Stop(lazy bool) error {
	return d.process(NewStopCommand(), lazy)
}

// ForwardUntil drives forward at the given speed until hasToStop reports
// true, then stops. hasToStop is polled as fast as it returns.
func (d *Driver) ForwardUntil(hasToStop func() bool, speed int) error {
	if err := d.Forward(speed, false); err != nil {
		return err
	}
	for !hasToStop() {
	}
	return d.Stop(false)
}

// SetHeadAngle points the sensor head at the given angle in [-80,80],
// where 0 is straight ahead, positive is left and negative is right.
// Angles outside the range are clamped. The servo itself counts 0 as
// full right and 90 as front, so the wire angle is shifted by 90.
func (d *Driver) SetHeadAngle(angle int, lazy bool) error {
	angle = min(MaxHeadAngle, max(MinHeadAngle, angle))
	return d.process(NewSetHeadCommand(angle+HeadServoOffset), lazy)
}

// TurnHead moves the sensor head by delta degrees relative to its current
// angle. Positive delta turns left.
func (d *Driver) TurnHead(delta int, lazy bool) error {
	return d.SetHeadAngle(d.headAngle+delta, lazy)
}

// HeadAngle reports the current head angle in [-80,80].
func (d *Driver) HeadAngle() int {
	return d.headAngle
}
