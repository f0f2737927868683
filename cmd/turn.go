// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Michele De Stefano

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var turnCmd = &cobra.Command{
	Use:   "turn <angle>",
	Short: "Turn the car in place by a gyro-measured angle",
	Long: `Rotate the car in place by the given angle in degrees, positive =
counterclockwise (left).

The rotation is closed-loop on the MPU-6050 gyroscope: the bias-corrected
z angular rate is integrated while the wheels step, so the result tracks
the physical rotation instead of a timed guess. Expect an overshoot of up
to one sample of rotation.

Examples:
  # Quarter turn to the left
  elegoo-car turn 90

  # Half turn to the right
  elegoo-car turn -- -180`,
	Args: cobra.ExactArgs(1),
	RunE: runTurn,
}

func init() {
	rootCmd.AddCommand(turnCmd)
}

func runTurn(cmd *cobra.Command, args []string) error {
	angle, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid angle %q: %v", args[0], err)
	}
	if angle == 0 {
		fmt.Println("Nothing to do")
		return nil
	}

	drv, err := openDriver()
	if err != nil {
		return err
	}
	defer drv.Close()

	fmt.Printf("Turning %d deg ...\n", angle)
	if err := drv.TurnBy(angle); err != nil {
		return err
	}
	fmt.Println("Done")
	return nil
}
