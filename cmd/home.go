// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Michele De Stefano

package cmd

import (
	"fmt"

	"github.com/micdestefano/elegoo-robot-car4/pkg/car"
	"github.com/spf13/cobra"
)

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Turn the car toward the direction with the most clearance",
	Long: `Scan ahead with the ultrasonic head, turn toward the direction with the
farthest obstacle and refine the heading with narrow rescans. When the
refined heading still points at a nearby obstacle the car pivots 90
degrees and starts over, giving up after a few rounds.

Use --verbose to watch the individual scans and turns.`,
	RunE: runHome,
}

func init() {
	rootCmd.AddCommand(homeCmd)
}

func runHome(cmd *cobra.Command, args []string) error {
	drv, err := openDriver()
	if err != nil {
		return err
	}
	defer drv.Close()

	fmt.Println("Homing toward the clearest direction ...")
	angle, distance, err := drv.TurnToBestDirection()
	if err != nil {
		return err
	}

	fmt.Printf("Final heading offset: %d deg\n", angle)
	fmt.Printf("Clearance ahead: %s\n", car.FormatDistance(distance))
	return nil
}
