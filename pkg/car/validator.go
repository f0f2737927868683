// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"fmt"
	"math"
)

// AnomalyType represents different types of sensor reading anomalies
type AnomalyType int

const (
	AnomalyAccelRange AnomalyType = iota
	AnomalyGyroRange
	AnomalyTimeRegression
	AnomalyUltrasonicRange
	AnomalyIRRange
)

// ValidationError represents a sensor reading validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// Validation bounds. The MPU is configured for +/-2 g and +/-250 deg/s
// full scale; anything beyond that is a decode or transmission fault, not
// a measurement. The ultrasonic bound allows for the calibration applied
// on top of the firmware's 150 cm clip, and IR readings come from a
// 10 bit ADC.
const (
	maxAccel      = 2.0
	maxGyro       = 250.0
	minUltrasonic = -1.0
	maxUltrasonic = 200.0
	maxIRReading  = 1023
)

// ValidateSample checks an MPU sample against the sensor's physical full
// scale. Returns a slice of validation errors (empty if the sample is
// valid).
func ValidateSample(s Sample) []ValidationError {
	errors := []ValidationError{}

	accels := []struct {
		axis  string
		value float64
	}{{"x", s.Accel.X}, {"y", s.Accel.Y}, {"z", s.Accel.Z}}
	for _, a := range accels {
		if math.Abs(a.value) > maxAccel {
			errors = append(errors, ValidationError{
				Type:    AnomalyAccelRange,
				Message: fmt.Sprintf("Acceleration %s out of range (%.4f g, full scale +/-%.0f g)", a.axis, a.value, maxAccel),
				Details: map[string]interface{}{"axis": a.axis, "value": a.value, "max": maxAccel},
			})
		}
	}

	gyros := []struct {
		axis  string
		value float64
	}{{"x", s.Gyro.X}, {"y", s.Gyro.Y}, {"z", s.Gyro.Z}}
	for _, g := range gyros {
		if math.Abs(g.value) > maxGyro {
			errors = append(errors, ValidationError{
				Type:    AnomalyGyroRange,
				Message: fmt.Sprintf("Angular rate %s out of range (%.2f deg/s, full scale +/-%.0f deg/s)", g.axis, g.value, maxGyro),
				Details: map[string]interface{}{"axis": g.axis, "value": g.value, "max": maxGyro},
			})
		}
	}

	return errors
}

// ValidateSamplePair checks that time moves forward between two
// consecutive MPU samples. The firmware clock is a monotonic millisecond
// counter, so a regression means dropped or reordered replies.
func ValidateSamplePair(prev, cur Sample) []ValidationError {
	errors := []ValidationError{}

	if cur.T < prev.T {
		errors = append(errors, ValidationError{
			Type:    AnomalyTimeRegression,
			Message: fmt.Sprintf("Sample time went backwards (%.3f s after %.3f s)", cur.T, prev.T),
			Details: map[string]interface{}{"previous": prev.T, "current": cur.T},
		})
	}

	return errors
}

// ValidateUltrasonic checks a calibrated distance reading. The firmware
// clips raw readings at 150 cm; after calibration anything far outside
// that is a transmission fault.
func ValidateUltrasonic(cm float64) []ValidationError {
	errors := []ValidationError{}

	if cm < minUltrasonic || cm > maxUltrasonic {
		errors = append(errors, ValidationError{
			Type:    AnomalyUltrasonicRange,
			Message: fmt.Sprintf("Ultrasonic distance out of range (%.1f cm, valid: %.0f to %.0f cm)", cm, minUltrasonic, maxUltrasonic),
			Details: map[string]interface{}{"value": cm, "min": minUltrasonic, "max": maxUltrasonic},
		})
	}

	return errors
}

// ValidateIRReadings checks the three line-tracking readings against the
// ADC range.
func ValidateIRReadings(r IRReadings) []ValidationError {
	errors := []ValidationError{}

	sensors := []struct {
		name  string
		value int
	}{{"left", r.Left}, {"middle", r.Middle}, {"right", r.Right}}
	for _, s := range sensors {
		if s.value < 0 || s.value > maxIRReading {
			errors = append(errors, ValidationError{
				Type:    AnomalyIRRange,
				Message: fmt.Sprintf("Invalid %s IR reading (%d, valid: 0-%d)", s.name, s.value, maxIRReading),
				Details: map[string]interface{}{"sensor": s.name, "value": s.value, "max": maxIRReading},
			})
		}
	}

	return errors
}
