// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"strings"
	"testing"
)

// identityCal makes calibrated distances equal the raw readings, so
// scripted integers come back unchanged.
var identityCal = UltrasonicCalibration{Q: 0, M: 1}

func TestFindBestFrontDirection(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim, WithUltrasonicCalibration(identityCal))
	sim.distances = []int{30, 25, 8, 150, 20, 25}

	angle, distance, err := d.FindBestFrontDirection(-100, -30)
	if err != nil {
		t.Fatalf("FindBestFrontDirection failed: %v", err)
	}

	// lo clamps to -80, so the sweep covers -80..-30 in 10 degree steps
	// and the farthest reading sits at -50.
	if angle != -50 {
		t.Errorf("angle = %d, want -50", angle)
	}
	if distance != 150.0 {
		t.Errorf("distance = %v, want 150", distance)
	}
	if got := framesContaining(sim.writes, `"N": 21, "D1": 2`); got != 6 {
		t.Errorf("sent %d distance requests, want 6", got)
	}
	last := sim.writes[len(sim.writes)-1]
	if want := `{"H": "set_head_90", "N": 5, "D1": 1, "D2": 90}`; last != want {
		t.Errorf("final frame = %s, want %s", last, want)
	}
	if got := d.HeadAngle(); got != 0 {
		t.Errorf("HeadAngle = %d after the scan, want 0", got)
	}
}

func TestFindBestFrontDirection_Ties(t *testing.T) {
	tests := []struct {
		name      string
		distances []int
		wantAngle int
	}{
		{"upper tie rounds to even", []int{10, 80, 80, 20}, 20},
		{"lower tie rounds to even", []int{80, 80, 20, 10}, 0},
		{"triple tie takes the middle", []int{80, 80, 80, 10}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newCarSim()
			d := newTestDriver(t, sim, WithUltrasonicCalibration(identityCal))
			sim.distances = tt.distances

			angle, distance, err := d.FindBestFrontDirection(0, 30)
			if err != nil {
				t.Fatalf("FindBestFrontDirection failed: %v", err)
			}
			if angle != tt.wantAngle {
				t.Errorf("angle = %d, want %d", angle, tt.wantAngle)
			}
			if distance != 80.0 {
				t.Errorf("distance = %v, want 80", distance)
			}
		})
	}
}

func TestFindBestFrontDirection_RetriesTimeouts(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim, WithUltrasonicCalibration(identityCal))
	sim.distances = []int{55}
	sim.failDistances = 2

	angle, distance, err := d.FindBestFrontDirection(0, 0)
	if err != nil {
		t.Fatalf("FindBestFrontDirection failed: %v", err)
	}
	if angle != 0 || distance != 55.0 {
		t.Errorf("result = (%d, %v), want (0, 55)", angle, distance)
	}

	// Two dropped replies mean three requests, each with a fresh handle.
	if got := len(sim.writes); got != 3 {
		t.Fatalf("sent %d frames, want 3", got)
	}
	for i, id := range []string{"31", "32", "33"} {
		if want := "Ultrasonic_Value_Request_" + id; !strings.Contains(sim.writes[i], want) {
			t.Errorf("frame %d = %s, want handle %s", i, sim.writes[i], want)
		}
	}
	if got := d.Stats().Timeouts; got != 2 {
		t.Errorf("Timeouts = %d, want 2", got)
	}
	if got := d.Stats().ScanRetries; got != 2 {
		t.Errorf("ScanRetries = %d, want 2", got)
	}
}

func TestScanFront(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim, WithUltrasonicCalibration(identityCal))
	sim.distances = []int{40, 90, 15}

	points, err := d.ScanFront(-10, 10)
	if err != nil {
		t.Fatalf("ScanFront failed: %v", err)
	}

	want := []ScanPoint{{-10, 40.0}, {0, 90.0}, {10, 15.0}}
	if len(points) != len(want) {
		t.Fatalf("got %d points, want %d", len(points), len(want))
	}
	for i, p := range points {
		if p != want[i] {
			t.Errorf("points[%d] = %+v, want %+v", i, p, want[i])
		}
	}
	if got := d.HeadAngle(); got != 0 {
		t.Errorf("HeadAngle = %d after the sweep, want 0", got)
	}
}

func TestBestDirection_Empty(t *testing.T) {
	if _, err := BestDirection(nil); err == nil {
		t.Error("an empty scan should fail")
	}
}

func TestFindBestFrontDirection_EmptyRange(t *testing.T) {
	sim := newCarSim()
	d := newTestDriver(t, sim)

	if _, _, err := d.FindBestFrontDirection(80, -80); err == nil {
		t.Error("an inverted range should fail")
	}
	if got := len(sim.writes); got != 0 {
		t.Errorf("sent %d frames, want 0", got)
	}
}

func TestSetScanStep(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{27, 20},
		{5, 10},
		{10, 10},
		{35, 30},
		{0, 10},
		{-13, 10},
	}

	for _, tt := range tests {
		d := NewDryRun()
		d.SetScanStep(tt.in)
		if got := d.ScanStep(); got != tt.want {
			t.Errorf("SetScanStep(%d): ScanStep = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestScanStep_Default(t *testing.T) {
	if got := NewDryRun().ScanStep(); got != DefaultScanStep {
		t.Errorf("ScanStep = %d, want %d", got, DefaultScanStep)
	}
}
