// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Michele De Stefano

package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/micdestefano/elegoo-robot-car4/pkg/car"
	"github.com/spf13/cobra"
)

var (
	teleopTick          time.Duration
	teleopDryRun        bool
	teleopNoGroundCheck bool
)

// headStep is the head rotation per a/d key press, in degrees.
const headStep = 10

var teleopCmd = &cobra.Command{
	Use:   "teleop",
	Short: "Drive the car interactively",
	Long: `Drive the car from the keyboard with a live status display.

Keys:
  arrows   forward / backward / spin left / spin right
  a / d    turn the sensor head left / right
  s        center the sensor head
  + / -    wheel speed up / down
  t        action menu (firmware modes, scan, home, recalibrate, ...)
  r        reconnect and recalibrate
  q / esc  quit

Motion input is queued and flushed to the car once per tick. A tick
without input stops the wheels, so releasing the keys (or losing the
operator) halts the car within one tick. Each tick also checks whether
the car was lifted off the ground and halts the wheels if so.

--dry-run drives a disconnected driver: the full interface without a
car at the other end.`,
	RunE: runTeleop,
}

func init() {
	rootCmd.AddCommand(teleopCmd)
	teleopCmd.Flags().DurationVar(&teleopTick, "tick", 400*time.Millisecond, "Motion queue flush interval")
	teleopCmd.Flags().BoolVar(&teleopDryRun, "dry-run", false, "Drive a disconnected driver (nothing on the wire)")
	teleopCmd.Flags().BoolVar(&teleopNoGroundCheck, "no-ground-check", false, "Skip the per-tick ground-contact check")
}

func runTeleop(cmd *cobra.Command, args []string) error {
	session := &teleopSession{
		requests:    make(chan teleopRequest, 16),
		done:        make(chan struct{}),
		tick:        teleopTick,
		dryRun:      teleopDryRun,
		groundCheck: !teleopNoGroundCheck && !teleopDryRun,
	}

	m := initialTeleopModel(session)
	p := tea.NewProgram(m, tea.WithAltScreen())
	session.p = p

	go session.run()

	_, err := p.Run()

	// Winds the session down: stops the wheels and closes the driver.
	// May take a moment if a calibration or maneuver is still running.
	close(session.requests)
	<-session.done

	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return session.fatal
}

// Session requests, sent by the TUI

type teleopAction int

const (
	actForward teleopAction = iota
	actBackward
	actSpinLeft
	actSpinRight
	actHeadLeft
	actHeadRight
	actHeadCenter
	actClearStates
	actModeTracking
	actModeAvoidance
	actModeFollow
	actScan
	actHome
	actRecalibrate
	actReconnect

	// actSetSpeed is handled inside the TUI and never reaches the
	// session.
	actSetSpeed
)

// teleopRequest is one driver action with the wheel speed to run it at.
type teleopRequest struct {
	action teleopAction
	speed  int
}

// teleopSession owns the driver. The controller is strictly single
// caller, so every driver call happens on this goroutine; the TUI talks
// to it through the request channel and hears back through p.Send.
type teleopSession struct {
	p        *tea.Program
	requests chan teleopRequest
	done     chan struct{}

	tick        time.Duration
	dryRun      bool
	groundCheck bool

	drv      *car.Driver // nil while disconnected
	connInfo string
	lifted   bool
	fatal    error // startup failure, reported after the TUI exits
}

func (s *teleopSession) run() {
	defer close(s.done)

	drv, err := s.open()
	if err != nil {
		s.fatal = err
		s.p.Send(teleopFatalMsg{})
		return
	}
	s.drv = drv
	defer func() {
		if s.drv != nil {
			s.drv.Stop(false)
			s.drv.Close()
		}
	}()

	s.p.Send(teleopReadyMsg{connInfo: s.connInfo, dryRun: s.dryRun})
	s.sendStatus()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case req, ok := <-s.requests:
			if !ok {
				return
			}
			s.handle(req)
		case <-ticker.C:
			s.tickOnce()
		}
	}
}

func (s *teleopSession) open() (*car.Driver, error) {
	// --verbose would log to stderr, which fights the alt screen; the
	// event log pane stands in for it here.
	if s.dryRun {
		s.connInfo = "dry run"
		return car.NewDryRun(), nil
	}
	conn, info, err := OpenConnection()
	if err != nil {
		return nil, err
	}
	drv, err := car.NewDriver(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.connInfo = info
	return drv, nil
}

func (s *teleopSession) handle(req teleopRequest) {
	if req.action == actReconnect {
		s.reconnect()
		return
	}
	if s.drv == nil {
		s.log("Not connected (press r to reconnect)", true)
		return
	}

	var err error
	switch req.action {
	case actForward:
		err = s.drv.Forward(req.speed, true)
	case actBackward:
		err = s.drv.Backward(req.speed, true)
	case actSpinLeft:
		err = s.drv.Left(req.speed, true)
	case actSpinRight:
		err = s.drv.Right(req.speed, true)
	case actHeadLeft:
		err = s.drv.TurnHead(headStep, true)
	case actHeadRight:
		err = s.drv.TurnHead(-headStep, true)
	case actHeadCenter:
		err = s.drv.SetHeadAngle(0, true)

	case actClearStates:
		if err = s.drv.ClearAllStates(); err == nil {
			s.log("Firmware states cleared", false)
		}
	case actModeTracking:
		err = s.setMode(car.ModeTracking)
	case actModeAvoidance:
		err = s.setMode(car.ModeObstacleAvoidance)
	case actModeFollow:
		err = s.setMode(car.ModeFollow)

	case actScan:
		s.runScan()
	case actHome:
		s.runHome()
	case actRecalibrate:
		s.log("Recalibrating, keep the car still ...", false)
		if err = s.drv.Recalibrate(); err == nil {
			s.log("Recalibration done", false)
		}
	}
	if err != nil {
		s.log(err.Error(), true)
	}
	s.sendStatus()
}

func (s *teleopSession) setMode(mode car.Mode) error {
	if err := s.drv.SetMode(mode); err != nil {
		return err
	}
	s.log("Mode: "+car.FormatMode(mode), false)
	return nil
}

// tickOnce flushes the motion queue. An empty queue stops the car, so a
// tick without operator input acts as a dead man's switch.
func (s *teleopSession) tickOnce() {
	if s.drv == nil {
		return
	}

	if s.groundCheck {
		lifted, err := s.drv.FarFromGround()
		switch {
		case err != nil && car.IsTimeout(err):
			s.log("Ground check timed out", true)
		case err != nil:
			s.log(fmt.Sprintf("Ground check failed: %v", err), true)
		default:
			if lifted != s.lifted {
				if lifted {
					s.log("Car lifted off the ground, wheels halted", true)
				} else {
					s.log("Ground contact restored", false)
				}
				s.lifted = lifted
			}
			if lifted {
				if err := s.drv.EmergencyStop(); err != nil {
					s.log(fmt.Sprintf("Stop failed: %v", err), true)
				}
				s.sendStatus()
				return
			}
		}
	}

	if err := s.drv.Flush(); err != nil {
		s.log(fmt.Sprintf("Flush failed: %v", err), true)
	}
	s.sendStatus()
}

func (s *teleopSession) runScan() {
	s.log("Scanning ...", false)
	angle, distance, err := s.drv.FindBestFrontDirection(car.MinHeadAngle, car.MaxHeadAngle)
	if err != nil {
		s.log(fmt.Sprintf("Scan failed: %v", err), true)
		return
	}
	s.log(fmt.Sprintf("Best direction: %d deg (%s clear)", angle, car.FormatDistance(distance)), false)
}

func (s *teleopSession) runHome() {
	s.log("Homing toward the clearest direction ...", false)
	angle, distance, err := s.drv.TurnToBestDirection()
	if err != nil {
		s.log(fmt.Sprintf("Homing failed: %v", err), true)
		return
	}
	s.log(fmt.Sprintf("Homed: %d deg off, %s clear", angle, car.FormatDistance(distance)), false)
}

func (s *teleopSession) reconnect() {
	if s.dryRun {
		s.log("Dry run, nothing to reconnect", false)
		return
	}
	if s.drv != nil {
		s.drv.Close()
		s.drv = nil
	}

	s.log("Reconnecting ...", false)
	conn, info, err := OpenConnection()
	if err != nil {
		s.log(fmt.Sprintf("Reconnect failed: %v", err), true)
		return
	}
	s.log("Calibrating MPU offsets, keep the car still ...", false)
	drv, err := car.NewDriver(conn)
	if err != nil {
		conn.Close()
		s.log(fmt.Sprintf("Driver startup failed: %v", err), true)
		return
	}

	s.drv = drv
	s.connInfo = info
	s.lifted = false
	s.p.Send(teleopReadyMsg{connInfo: info, dryRun: false})
	s.log("Reconnected", false)
	s.sendStatus()
}

func (s *teleopSession) sendStatus() {
	if s.drv == nil {
		return
	}
	stats := *s.drv.Stats()
	stats.CalculateRates()
	s.p.Send(teleopStatusMsg{
		state:     s.drv.State(),
		headAngle: s.drv.HeadAngle(),
		stats:     stats,
	})
}

func (s *teleopSession) log(text string, isError bool) {
	s.p.Send(teleopLogMsg{text: text, isError: isError})
}
