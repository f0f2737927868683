// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"encoding/json"
	"regexp"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Sample is one MPU-6050 reading in physical units.
type Sample struct {
	ID    string    // handle of the request this sample answers
	T     float64   // firmware acquisition time, seconds
	Accel r3.Vector // acceleration, g
	Gyro  r3.Vector // angular rate, deg/s
}

// DecodeSample parses an MPU reply and converts the raw register counts
// to physical units and the timestamp from milliseconds to seconds.
func DecodeSample(text string) (Sample, error) {
	var raw struct {
		ID string     `json:"id"`
		T  float64    `json:"t"`
		A  [3]float64 `json:"a"`
		G  [3]float64 `json:"g"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Sample{}, errors.Wrap(err, "decoding MPU reply")
	}
	return Sample{
		ID: raw.ID,
		T:  raw.T * 0.001,
		Accel: r3.Vector{
			X: raw.A[0] * AccelQuantum,
			Y: raw.A[1] * AccelQuantum,
			Z: raw.A[2] * AccelQuantum,
		},
		Gyro: r3.Vector{
			X: raw.G[0] * GyroQuantum,
			Y: raw.G[1] * GyroQuantum,
			Z: raw.G[2] * GyroQuantum,
		},
	}, nil
}

// mpuReplyPattern matches the JSON reply carrying the given request id.
// The reply is the only stream token that is a full JSON object rather
// than a brace-delimited label.
func mpuReplyPattern(id string) *regexp.Regexp {
	return regexp.MustCompile(`\{"id":"` + regexp.QuoteMeta(id) + `",.+\]\}`)
}

// RequestMPUData sends an MPU sample request and returns its handle.
// Pair it with ReceiveMPUData; MPUData does both in one call.
func (d *Driver) RequestMPUData() (string, error) {
	cmd := NewMPURequest(d.ids())
	if err := d.send(cmd); err != nil {
		return "", err
	}
	return cmd.Handle, nil
}

// ReceiveMPUData blocks until the reply to a previous request arrives and
// returns the decoded sample.
func (d *Driver) ReceiveMPUData(id string) (Sample, error) {
	reply, err := d.await(mpuReplyPattern(id))
	if err != nil {
		return Sample{}, err
	}
	s, err := DecodeSample(reply)
	if err != nil {
		d.stats.RecordDecodeFailure()
		return Sample{}, err
	}
	d.stats.RecordSensorReply()
	d.logf("MPU sample: %s", FormatSample(s))
	return s, nil
}

// MPUData requests and receives one MPU sample.
func (d *Driver) MPUData() (Sample, error) {
	id, err := d.RequestMPUData()
	if err != nil {
		return Sample{}, err
	}
	return d.ReceiveMPUData(id)
}
