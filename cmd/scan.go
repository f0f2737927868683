// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Michele De Stefano

package cmd

import (
	"fmt"

	"github.com/micdestefano/elegoo-robot-car4/pkg/car"
	"github.com/spf13/cobra"
)

var (
	scanFrom int
	scanTo   int
	scanStep int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep the ultrasonic head and report the clearest direction",
	Long: `Sweep the sensor head across the given angle range, measure the obstacle
distance at each step and report the direction with the farthest obstacle.

Angles are in degrees, 0 = straight ahead, positive = counterclockwise
(left). The step snaps down to a multiple of 10 degrees. Readings lost to
timeouts are retried, so a flaky link slows the scan down instead of
breaking it.

Examples:
  # Full sweep
  elegoo-car scan

  # Coarse sweep of the right half
  elegoo-car scan --from -80 --to 0 --step 20`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().IntVar(&scanFrom, "from", car.MinHeadAngle, "Scan start angle (deg)")
	scanCmd.Flags().IntVar(&scanTo, "to", car.MaxHeadAngle, "Scan end angle (deg)")
	scanCmd.Flags().IntVar(&scanStep, "step", car.DefaultScanStep, "Angle between measurements (deg)")
}

func runScan(cmd *cobra.Command, args []string) error {
	drv, err := openDriver()
	if err != nil {
		return err
	}
	defer drv.Close()

	drv.SetScanStep(scanStep)
	fmt.Printf("Scanning %d..%d deg in %d deg steps\n\n", scanFrom, scanTo, drv.ScanStep())

	points, err := drv.ScanFront(scanFrom, scanTo)
	if err != nil {
		return err
	}

	fmt.Printf("  Angle  Distance\n")
	for _, p := range points {
		fmt.Printf("  %4d   %s\n", p.Angle, car.FormatDistance(p.Distance))
	}

	best, err := car.BestDirection(points)
	if err != nil {
		return err
	}
	fmt.Printf("\nBest direction: %d deg (%s clear)\n", best.Angle, car.FormatDistance(best.Distance))
	return nil
}
