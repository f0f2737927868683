// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"log"
	"math/rand/v2"
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Driver controls an Elegoo Smart Robot Car V4 over a single blocking
// connection. Operations are synchronous: one command goes out, at most
// one reply is awaited, one caller at a time. A Driver is not safe for
// concurrent use; callers sharing one across goroutines must serialize
// access themselves.
type Driver struct {
	conn    Connection
	replies *ResponseBuffer
	stats   *Statistics
	logger  *log.Logger
	ids     func() uint32
	dryRun  bool

	state      string
	queue      []Command
	headAngle  int
	offsets    Offsets
	ultrasonic UltrasonicCalibration
	scanStep   int
}

// Option configures a Driver before its startup sequence runs.
type Option func(*Driver)

// WithLogger makes the driver log sent frames, received replies and
// calibration progress.
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithUltrasonicCalibration replaces the factory raw-to-centimeters
// coefficients.
func WithUltrasonicCalibration(c UltrasonicCalibration) Option {
	return func(d *Driver) { d.ultrasonic = c }
}

// WithIDSource replaces the random generator used for request handles.
// Useful in tests that need stable handles.
func WithIDSource(ids func() uint32) Option {
	return func(d *Driver) { d.ids = ids }
}

func newDriver(opts ...Option) *Driver {
	d := &Driver{
		state:      HandleStop,
		ultrasonic: DefaultUltrasonicCalibration(),
		scanStep:   DefaultScanStep,
		stats:      NewStatistics(),
		ids:        rand.Uint32,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewDriver prepares a driver on an established connection: it estimates
// the MPU bias offsets from a stationary sampling pass and centers the
// sensor head. The car must not be moved while this runs.
func NewDriver(conn Connection, opts ...Option) (*Driver, error) {
	d := newDriver(opts...)
	d.conn = conn
	d.replies = NewResponseBuffer(conn, d.stats)
	if err := d.computeMPUOffsets(); err != nil {
		return nil, err
	}
	if err := d.SetHeadAngle(0, false); err != nil {
		return nil, err
	}
	return d, nil
}

// Dial connects to the car's TCP command port and runs the NewDriver
// startup sequence on the new connection.
func Dial(host string, port int, timeout time.Duration, opts ...Option) (*Driver, error) {
	conn, err := DialTCP(host, port, timeout)
	if err != nil {
		return nil, err
	}
	d, err := NewDriver(conn, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

// NewDryRun creates a driver that builds and logs frames without sending
// them. Awaited replies come back empty, so motion commands behave
// normally while sensor reads fail to decode. The startup calibration is
// skipped.
func NewDryRun(opts ...Option) *Driver {
	d := newDriver(opts...)
	d.dryRun = true
	return d
}

// Close shuts the connection down. Safe to call on a dry-run driver.
func (d *Driver) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// State reports the label of the last applied movement command.
func (d *Driver) State() string {
	return d.state
}

// Offsets reports the MPU biases estimated at startup.
func (d *Driver) Offsets() Offsets {
	return d.offsets
}

// Stats exposes the connection's traffic counters.
func (d *Driver) Stats() *Statistics {
	return d.stats
}

// DryRun reports whether the driver simulates commands without a
// connection.
func (d *Driver) DryRun() bool {
	return d.dryRun
}

// send encodes and writes one command frame. In dry-run mode the frame is
// built and logged but not written.
func (d *Driver) send(cmd Command) error {
	frame := EncodeCommand(cmd)
	if !d.dryRun {
		if _, err := d.conn.Write(frame); err != nil {
			return errors.Wrap(err, "sending command")
		}
	}
	d.stats.RecordCommand(len(frame))
	d.logf("sent command: %s", frame)
	return nil
}

// await blocks until the reply matching pattern arrives. In dry-run mode
// it returns an empty reply immediately.
func (d *Driver) await(pattern *regexp.Regexp) (string, error) {
	if d.dryRun {
		return "", nil
	}
	text, err := d.replies.Await(pattern)
	if err != nil {
		if IsTimeout(err) {
			d.stats.RecordTimeout()
		}
		return "", err
	}
	d.logf("received reply: %s", text)
	return text, nil
}

// UltrasonicDistance reads the ultrasonic sensor and converts the raw
// value to centimeters with the driver's calibration. The firmware clips
// readings at 150 cm.
func (d *Driver) UltrasonicDistance() (float64, error) {
	cmd := NewUltrasonicRequest(d.ids())
	if err := d.send(cmd); err != nil {
		return 0, err
	}
	pattern := numericReplyPattern(cmd.Handle)
	text, err := d.await(pattern)
	if err != nil {
		return 0, err
	}
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		d.stats.RecordDecodeFailure()
		return 0, errors.Errorf("malformed ultrasonic reply %q", text)
	}
	raw, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		d.stats.RecordDecodeFailure()
		return 0, errors.Wrap(err, "parsing ultrasonic reply")
	}
	d.stats.RecordSensorReply()
	distance := d.ultrasonic.Distance(raw)
	d.logf("ultrasonic distance: %g cm", distance)
	return distance, nil
}

// ObstacleAhead reports whether the firmware sees an obstacle in front of
// the ultrasonic sensor.
func (d *Driver) ObstacleAhead() (bool, error) {
	cmd := NewObstacleRequest(d.ids())
	if err := d.send(cmd); err != nil {
		return false, err
	}
	return d.awaitBoolean(cmd.Handle)
}

// IRValue reads one of the three line-tracking IR sensors.
func (d *Driver) IRValue(sensor IRSensor) (int, error) {
	cmd := NewIRRequest(sensor, d.ids())
	if err := d.send(cmd); err != nil {
		return 0, err
	}
	pattern := numericReplyPattern(cmd.Handle)
	text, err := d.await(pattern)
	if err != nil {
		return 0, err
	}
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		d.stats.RecordDecodeFailure()
		return 0, errors.Errorf("malformed IR reply %q", text)
	}
	value, err := strconv.Atoi(m[1])
	if err != nil {
		d.stats.RecordDecodeFailure()
		return 0, errors.Wrap(err, "parsing IR reply")
	}
	d.stats.RecordSensorReply()
	return value, nil
}

// IRReadings holds one reading per line-tracking sensor.
type IRReadings struct {
	Left   int `json:"left"`
	Middle int `json:"middle"`
	Right  int `json:"right"`
}

// IRAll reads the three IR sensors left to right.
func (d *Driver) IRAll() (IRReadings, error) {
	var r IRReadings
	var err error
	if r.Left, err = d.IRValue(IRLeft); err != nil {
		return r, err
	}
	if r.Middle, err = d.IRValue(IRMiddle); err != nil {
		return r, err
	}
	if r.Right, err = d.IRValue(IRRight); err != nil {
		return r, err
	}
	return r, nil
}

// FarFromGround reports whether the car has been lifted off the ground,
// as deduced by the firmware from the IR sensors.
func (d *Driver) FarFromGround() (bool, error) {
	cmd := NewGroundCheckRequest(d.ids())
	if err := d.send(cmd); err != nil {
		return false, err
	}
	return d.awaitBoolean(cmd.Handle)
}

// SetMode switches the firmware's builtin operation mode. The firmware
// never confirms the switch.
func (d *Driver) SetMode(mode Mode) error {
	return d.send(NewSetModeCommand(mode))
}

// ClearAllStates aborts whatever builtin behavior is running and waits
// for the firmware to confirm.
func (d *Driver) ClearAllStates() error {
	cmd := NewClearStatesCommand(d.ids())
	if err := d.send(cmd); err != nil {
		return err
	}
	if _, err := d.await(confirmationPattern(StateLabel(cmd))); err != nil {
		return err
	}
	d.stats.RecordConfirmation()
	return nil
}

func (d *Driver) awaitBoolean(id string) (bool, error) {
	pattern := booleanReplyPattern(id)
	text, err := d.await(pattern)
	if err != nil {
		return false, err
	}
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		d.stats.RecordDecodeFailure()
		return false, errors.Errorf("malformed boolean reply %q", text)
	}
	d.stats.RecordSensorReply()
	return m[1] == "true", nil
}

func (d *Driver) logf(format string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

// numericReplyPattern matches "{<id>_<number>}" and captures the number.
func numericReplyPattern(id string) *regexp.Regexp {
	return regexp.MustCompile(`\{` + regexp.QuoteMeta(id) + `_(\d+)\}`)
}

// booleanReplyPattern matches "{<id>_true}" or "{<id>_false}" and
// captures the flag.
func booleanReplyPattern(id string) *regexp.Regexp {
	return regexp.MustCompile(`\{` + regexp.QuoteMeta(id) + `_(true|false)\}`)
}
