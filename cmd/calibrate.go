// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Michele De Stefano

package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/micdestefano/elegoo-robot-car4/pkg/car"
	"github.com/spf13/cobra"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <csv>",
	Short: "Fit the ultrasonic distance correction from measurements",
	Long: `Fit the affine correction real = q + m * sensor by least squares over a
CSV of paired measurements. The file needs a "sensor,real" header and one
row per sample: the raw ultrasonic reading and the tape-measure distance
in centimeters.

Collect the samples with the sensors command against targets at known
distances, then bake the printed coefficients into your driver setup.

Example CSV:
  sensor,real
  10.76,13.5
  31.0,39.0
  81.5,102.0`,
	Args: cobra.ExactArgs(1),
	RunE: runCalibrate,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("reading %s: %v", args[0], err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%s is empty", args[0])
	}

	header := records[0]
	if len(header) != 2 || header[0] != "sensor" || header[1] != "real" {
		return fmt.Errorf("%s: want header \"sensor,real\", got %q", args[0], strings.Join(header, ","))
	}

	var raw, measured []float64
	for i, rec := range records[1:] {
		s, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			return fmt.Errorf("%s line %d: %v", args[0], i+2, err)
		}
		m, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return fmt.Errorf("%s line %d: %v", args[0], i+2, err)
		}
		raw = append(raw, s)
		measured = append(measured, m)
	}

	cal, err := car.FitUltrasonic(raw, measured)
	if err != nil {
		return err
	}

	fmt.Println("Regression coefficients (y = q + m * x)")
	fmt.Printf("[q, m] = [%.8f, %.8f]\n", cal.Q, cal.M)
	return nil
}
