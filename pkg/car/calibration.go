// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Offsets holds the per-axis MPU biases estimated while the car rests on
// a level surface. Samples are reported uncorrected; subtracting the
// offsets is up to the consumer that needs bias-free readings.
type Offsets struct {
	Accel r3.Vector // g
	Gyro  r3.Vector // deg/s
}

// Correct returns s with the offsets removed.
func (o Offsets) Correct(s Sample) Sample {
	s.Accel = s.Accel.Sub(o.Accel)
	s.Gyro = s.Gyro.Sub(o.Gyro)
	return s
}

// ComputeOffsets estimates sensor biases as the per-axis mean of samples
// taken while the car is stationary.
func ComputeOffsets(samples []Sample) (Offsets, error) {
	if len(samples) == 0 {
		return Offsets{}, errors.New("no calibration samples")
	}
	n := len(samples)
	ax := make([]float64, n)
	ay := make([]float64, n)
	az := make([]float64, n)
	gx := make([]float64, n)
	gy := make([]float64, n)
	gz := make([]float64, n)
	for i, s := range samples {
		ax[i] = s.Accel.X
		ay[i] = s.Accel.Y
		az[i] = s.Accel.Z
		gx[i] = s.Gyro.X
		gy[i] = s.Gyro.Y
		gz[i] = s.Gyro.Z
	}
	return Offsets{
		Accel: r3.Vector{
			X: stat.Mean(ax, nil),
			Y: stat.Mean(ay, nil),
			Z: stat.Mean(az, nil),
		},
		Gyro: r3.Vector{
			X: stat.Mean(gx, nil),
			Y: stat.Mean(gy, nil),
			Z: stat.Mean(gz, nil),
		},
	}, nil
}

// UltrasonicCalibration maps raw ultrasonic readings to centimeters with
// the affine model real = Q + M*raw.
type UltrasonicCalibration struct {
	Q float64
	M float64
}

// DefaultUltrasonicCalibration returns the factory coefficients measured
// against a tape ruler on a stock HC-SR04 module.
func DefaultUltrasonicCalibration() UltrasonicCalibration {
	return UltrasonicCalibration{Q: DefaultUltrasonicQ, M: DefaultUltrasonicM}
}

// Distance converts a raw sensor reading to centimeters.
func (c UltrasonicCalibration) Distance(raw float64) float64 {
	return c.Q + c.M*raw
}

// FitUltrasonic fits the affine model to paired raw readings and
// tape-measured distances by ordinary least squares.
func FitUltrasonic(raw, measured []float64) (UltrasonicCalibration, error) {
	if len(raw) != len(measured) {
		return UltrasonicCalibration{}, errors.Errorf(
			"mismatched calibration series: %d raw, %d measured", len(raw), len(measured))
	}
	if len(raw) < 2 {
		return UltrasonicCalibration{}, errors.New("need at least two calibration points")
	}
	q, m := stat.LinearRegression(raw, measured, nil, false)
	return UltrasonicCalibration{Q: q, M: m}, nil
}

// computeMPUOffsets collects CalibrationSamples readings and stores the
// estimated biases on the driver. The car must be standing still.
func (d *Driver) computeMPUOffsets() error {
	d.logf("computing MPU offsets ...")
	samples := make([]Sample, 0, CalibrationSamples)
	for i := 0; i < CalibrationSamples; i++ {
		s, err := d.MPUData()
		if err != nil {
			return errors.Wrap(err, "calibrating MPU")
		}
		samples = append(samples, s)
	}
	offsets, err := ComputeOffsets(samples)
	if err != nil {
		return err
	}
	d.offsets = offsets
	d.logf("acceleration offsets: %v", offsets.Accel)
	d.logf("gyro offsets: %v", offsets.Gyro)
	return nil
}

// Recalibrate re-estimates the MPU biases. Call it with the car resting
// on a level surface, for example after a battery swap warmed the IMU.
func (d *Driver) Recalibrate() error {
	if d.dryRun {
		return nil
	}
	return d.computeMPUOffsets()
}
