// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"math"

	"gonum.org/v1/gonum/integrate"
)

// TurnBy rotates the car in place by the given angle in degrees, positive
// counterclockwise. The wheel speed is fixed because faster turns degrade
// the angular control. The rotation is closed-loop on the gyroscope:
// bias-corrected z angular velocity is integrated with the trapezoidal
// rule until the accumulated angle reaches the target. The loop condition
// is only checked at sample boundaries, so the car can overshoot by up to
// one sample of rotation.
func (d *Driver) TurnBy(angle int) error {
	dir := DirRight
	if angle > 0 {
		dir = DirLeft
	}
	turn := NewMoveCommand(dir, TurnSpeed)
	s, err := d.MPUData()
	if err != nil {
		return err
	}
	t0 := s.T
	wz0 := s.Gyro.Z - d.offsets.Gyro.Z
	alpha := 0.0
	target := math.Abs(float64(angle))
	if err := d.Apply(turn); err != nil {
		return err
	}
	for math.Abs(alpha) < target {
		s, err := d.MPUData()
		if err != nil {
			return err
		}
		wz := s.Gyro.Z - d.offsets.Gyro.Z
		alpha += integrate.Trapezoidal([]float64{t0, s.T}, []float64{wz0, wz})
		d.logf("turn progress: t=%.3f wz=%.3f alpha=%.3f", s.T, wz, alpha)
		t0 = s.T
		wz0 = wz
	}
	return d.Stop(false)
}
