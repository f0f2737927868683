// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

// TurnToBestDirection repeatedly scans ahead and turns the car toward the
// direction with the most clearance. Narrow rescans refine the heading
// after each turn; when the refined heading still points at a nearby
// obstacle the car pivots 90 degrees and starts over, giving up after a
// few rounds. Returns the last angle and distance found.
func (d *Driver) TurnToBestDirection() (int, float64, error) {
	angle, distance, err := d.FindBestFrontDirection(MinHeadAngle, MaxHeadAngle)
	if err != nil {
		return 0, 0, err
	}
	for trials := 0; intAbs(angle) > homingAngleTolerance && trials < homingMaxTrials; trials++ {
		for front := 0; intAbs(angle) > homingAngleTolerance && front < homingMaxForwardTrials; front++ {
			if err := d.TurnBy(angle); err != nil {
				return 0, 0, err
			}
			angle, distance, err = d.FindBestFrontDirection(-homingRescanHalfWidth, homingRescanHalfWidth)
			if err != nil {
				return 0, 0, err
			}
		}
		if intAbs(angle) > homingAngleTolerance || distance < homingMinClearance {
			if err := d.TurnBy(homingPivotAngle); err != nil {
				return 0, 0, err
			}
		}
	}
	d.logf("best distance up to now: %g", distance)
	d.logf("best angle found: %d", angle)
	return angle, distance, nil
}

func intAbs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
