// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

func TestOffsetsCorrect(t *testing.T) {
	o := Offsets{
		Accel: r3.Vector{X: 0.25, Y: -0.5, Z: -1.0},
		Gyro:  r3.Vector{X: 0.125, Y: 0.0, Z: 0.0625},
	}
	s := Sample{
		ID:    "MPU_Request_3",
		T:     2.5,
		Accel: r3.Vector{X: 1.25, Y: 0.5, Z: -1.0},
		Gyro:  r3.Vector{X: 0.625, Y: 0.25, Z: 0.0625},
	}

	got := o.Correct(s)

	want := Sample{
		ID:    "MPU_Request_3",
		T:     2.5,
		Accel: r3.Vector{X: 1.0, Y: 1.0, Z: 0.0},
		Gyro:  r3.Vector{X: 0.5, Y: 0.25, Z: 0.0},
	}
	if got != want {
		t.Errorf("Correct = %+v, want %+v", got, want)
	}
}

func TestComputeOffsets(t *testing.T) {
	bias := Sample{
		Accel: r3.Vector{X: 0.0125, Y: -0.03, Z: -0.98},
		Gyro:  r3.Vector{X: 0.56, Y: -0.21, Z: 0.08},
	}
	samples := make([]Sample, 30)
	for i := range samples {
		samples[i] = bias
		samples[i].T = float64(i)
	}

	got, err := ComputeOffsets(samples)
	if err != nil {
		t.Fatalf("ComputeOffsets failed: %v", err)
	}

	const tol = 1e-12
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"accel x", got.Accel.X, bias.Accel.X},
		{"accel y", got.Accel.Y, bias.Accel.Y},
		{"accel z", got.Accel.Z, bias.Accel.Z},
		{"gyro x", got.Gyro.X, bias.Gyro.X},
		{"gyro y", got.Gyro.Y, bias.Gyro.Y},
		{"gyro z", got.Gyro.Z, bias.Gyro.Z},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > tol {
			t.Errorf("%s offset = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestComputeOffsets_Empty(t *testing.T) {
	if _, err := ComputeOffsets(nil); err == nil {
		t.Error("ComputeOffsets should fail without samples")
	}
}

func TestFitUltrasonic(t *testing.T) {
	const (
		q = -0.4
		m = 1.25
	)
	raw := []float64{10, 20, 40, 80, 120, 160}
	measured := make([]float64, len(raw))
	for i, r := range raw {
		measured[i] = q + m*r
	}

	cal, err := FitUltrasonic(raw, measured)
	if err != nil {
		t.Fatalf("FitUltrasonic failed: %v", err)
	}

	const tol = 1e-9
	if math.Abs(cal.Q-q) > tol {
		t.Errorf("Q = %v, want %v", cal.Q, q)
	}
	if math.Abs(cal.M-m) > tol {
		t.Errorf("M = %v, want %v", cal.M, m)
	}
	if got, want := cal.Distance(100), q+m*100; math.Abs(got-want) > tol {
		t.Errorf("Distance(100) = %v, want %v", got, want)
	}
}

func TestFitUltrasonic_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      []float64
		measured []float64
	}{
		{"mismatched lengths", []float64{1, 2, 3}, []float64{1, 2}},
		{"single point", []float64{1}, []float64{1}},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FitUltrasonic(tt.raw, tt.measured); err == nil {
				t.Error("FitUltrasonic should fail")
			}
		})
	}
}

func TestUltrasonicCalibrationDistance(t *testing.T) {
	tests := []struct {
		name string
		cal  UltrasonicCalibration
		raw  float64
		want float64
	}{
		{"factory", DefaultUltrasonicCalibration(), 100, 125.65256077},
		{"identity", UltrasonicCalibration{Q: 0, M: 1}, 42, 42},
		{"affine", UltrasonicCalibration{Q: 2, M: 0.5}, 10, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cal.Distance(tt.raw); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
