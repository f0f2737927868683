// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"image"
	"math"
)

// Follow tuning.
const (
	followSpeed        = 150  // forward speed while chasing
	followBandFraction = 0.15 // dead band half-width as a fraction of frame width
	followAreaFraction = 0.4  // normalized box area that counts as close enough
)

// Detection is one tracked person box. CX and CY locate the box center in
// pixels of the camera frame; W and H are the box size in pixels; NW and
// NH are the size normalized to the frame.
type Detection struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
	NW float64 `json:"nw"`
	NH float64 `json:"nh"`
}

// TrackResult is one round of person-tracking output, best detection
// first.
type TrackResult struct {
	Detections []Detection `json:"detections"`
}

// Detector turns a camera frame into tracking results. The inference
// itself lives outside this package; anything producing TrackResults can
// feed a Follower.
type Detector interface {
	Track(image.Image) (*TrackResult, error)
}

// Follower steers the car toward the person a tracker sees. The tracking
// itself runs outside this package; the follower only turns its output
// into movement commands.
type Follower struct {
	driver           *Driver
	centerX, centerY float64
	horizontalLimit  float64
}

// NewFollower binds a follower to the driver and the camera frame
// geometry in pixels.
func NewFollower(d *Driver, frameWidth, frameHeight int) *Follower {
	return &Follower{
		driver:          d,
		centerX:         float64(frameWidth) * 0.5,
		centerY:         float64(frameHeight) * 0.5,
		horizontalLimit: float64(frameWidth) * followBandFraction,
	}
}

// Step reacts to one round of tracking results. A nil result means the
// tracker did not run this tick and leaves the car alone. Otherwise the
// first detection steers: inside the horizontal dead band the car drives
// forward until the box area says the person is close, outside it the car
// rotates toward them; no detection stops the car. The decision goes
// through the lazy queue and is flushed before returning.
func (f *Follower) Step(res *TrackResult) error {
	if res == nil {
		return nil
	}
	if len(res.Detections) > 0 {
		det := res.Detections[0]
		dx := det.CX - f.centerX
		dy := det.CY - f.centerY
		area := det.NW * det.NH
		f.driver.logf("follow: displacement=(%.0f,%.0f) area=%.2f", dx, dy, area)
		switch {
		case math.Abs(dx) < f.horizontalLimit:
			if area < followAreaFraction {
				f.driver.Enqueue(NewMoveCommand(DirForward, followSpeed))
			} else {
				f.driver.Enqueue(NewStopCommand())
			}
		case dx > 0:
			f.driver.Enqueue(NewMoveCommand(DirRight, DefaultSpeed))
		default:
			f.driver.Enqueue(NewMoveCommand(DirLeft, DefaultSpeed))
		}
	} else {
		f.driver.Enqueue(NewStopCommand())
	}
	return f.driver.Flush()
}
