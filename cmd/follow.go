// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Michele De Stefano

package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/micdestefano/elegoo-robot-car4/pkg/car"
	"github.com/spf13/cobra"
)

var (
	followWidth         int
	followHeight        int
	followDetections    string
	followNoGroundCheck bool
)

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Drive toward a tracked person",
	Long: `Read person-tracking results and steer the car toward the first detection
of each round: rotate until the box center sits inside the horizontal
dead band, then drive forward until the box area says the person is
close. No detection stops the car.

The tracking itself runs outside this tool (typically a vision process
chewing on the camera stream). It feeds results here as newline-delimited
JSON, one round per line:

  {"detections":[{"cx":400,"cy":300,"w":120,"h":240,"nw":0.15,"nh":0.4}]}

Boxes are in pixels of the camera frame; nw/nh are the box size
normalized to the frame. --width/--height must match the tracker's frame
geometry. Each round also checks whether the car was lifted off the
ground and stops it if so (--no-ground-check to skip, e.g. over a flaky
link).

Example:
  tracker --camera http://192.168.4.1:7000/capture | elegoo-car follow`,
	RunE: runFollow,
}

func init() {
	rootCmd.AddCommand(followCmd)
	followCmd.Flags().IntVar(&followWidth, "width", 800, "Camera frame width (px)")
	followCmd.Flags().IntVar(&followHeight, "height", 600, "Camera frame height (px)")
	followCmd.Flags().StringVar(&followDetections, "detections", "-", "Track result stream (- = stdin)")
	followCmd.Flags().BoolVar(&followNoGroundCheck, "no-ground-check", false, "Skip the per-round ground-contact check")
}

func runFollow(cmd *cobra.Command, args []string) error {
	in := os.Stdin
	source := "stdin"
	if followDetections != "-" {
		f, err := os.Open(followDetections)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
		source = followDetections
	}

	drv, err := openDriver()
	if err != nil {
		return err
	}
	defer drv.Close()

	follower := car.NewFollower(drv, followWidth, followHeight)
	fmt.Printf("Following %dx%d frames from %s, Ctrl+C to stop\n", followWidth, followHeight, source)

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupted)

	// The scanner feeds a channel so an interrupt can stop the wheels
	// even while a read is pending.
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			lines <- line
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-interrupted:
			fmt.Println("\nInterrupted")
			return drv.Stop(false)

		case line, ok := <-lines:
			if !ok {
				fmt.Println("Tracker stream ended, stopping")
				if err := drv.Stop(false); err != nil {
					return err
				}
				return <-scanErr
			}

			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			var res car.TrackResult
			if err := json.Unmarshal(line, &res); err != nil {
				log.Printf("bad track result: %v", err)
				continue
			}

			if !followNoGroundCheck {
				lifted, err := drv.FarFromGround()
				if err != nil && !car.IsTimeout(err) {
					return err
				}
				if err == nil && lifted {
					fmt.Println("Car lifted off the ground, stopping")
					return drv.Stop(false)
				}
			}

			if err := follower.Step(&res); err != nil {
				return err
			}
		}
	}
}
