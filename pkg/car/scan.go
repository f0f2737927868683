// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ScanPoint is one direction-scan measurement.
type ScanPoint struct {
	Angle    int     // head angle, deg
	Distance float64 // calibrated obstacle distance, cm
}

// SetScanStep changes the angular spacing of direction scans. The step
// snaps down to the nearest multiple of 10 degrees and never goes below
// 10.
func (d *Driver) SetScanStep(step int) {
	step -= step % minScanStep
	if step < minScanStep {
		step = minScanStep
	}
	d.scanStep = step
}

// ScanStep reports the angular spacing used by direction scans.
func (d *Driver) ScanStep() int {
	return d.scanStep
}

// ScanFront sweeps the sensor head from lo to hi degrees and measures the
// obstacle distance at each step. The range is clamped to [-80,80]; hi is
// included when it lies on the step grid. Ultrasonic timeouts at a given
// angle are retried until a reading arrives. The head points straight
// ahead again when the sweep completes.
func (d *Driver) ScanFront(lo, hi int) ([]ScanPoint, error) {
	lo = min(MaxHeadAngle, max(MinHeadAngle, lo))
	hi = min(MaxHeadAngle, max(MinHeadAngle, hi))
	var points []ScanPoint
	for a := lo; a < hi+d.scanStep; a += d.scanStep {
		if err := d.SetHeadAngle(a, false); err != nil {
			return nil, err
		}
		var distance float64
		for {
			var err error
			distance, err = d.UltrasonicDistance()
			if err == nil {
				break
			}
			if !IsTimeout(err) {
				return nil, err
			}
			d.stats.RecordScanRetry()
		}
		points = append(points, ScanPoint{Angle: a, Distance: distance})
	}
	if len(points) == 0 {
		return nil, errors.Errorf("empty scan range [%d,%d]", lo, hi)
	}
	if err := d.SetHeadAngle(0, false); err != nil {
		return nil, err
	}
	return points, nil
}

// BestDirection picks the scan point with the farthest obstacle. When
// several points tie for the farthest distance, the one at the rounded
// mean of their positions wins, halves rounding to even.
func BestDirection(points []ScanPoint) (ScanPoint, error) {
	if len(points) == 0 {
		return ScanPoint{}, errors.New("empty scan")
	}
	distances := make([]float64, len(points))
	for i, p := range points {
		distances[i] = p.Distance
	}
	best := floats.Max(distances)
	var positions []float64
	for i, v := range distances {
		if v == best {
			positions = append(positions, float64(i))
		}
	}
	idx := int(math.RoundToEven(stat.Mean(positions, nil)))
	return points[idx], nil
}

// FindBestFrontDirection sweeps the sensor head from lo to hi degrees,
// measures the obstacle distance at each step and returns the angle with
// the farthest obstacle together with that distance.
func (d *Driver) FindBestFrontDirection(lo, hi int) (int, float64, error) {
	points, err := d.ScanFront(lo, hi)
	if err != nil {
		return 0, 0, err
	}
	best, err := BestDirection(points)
	if err != nil {
		return 0, 0, err
	}
	return best.Angle, best.Distance, nil
}
