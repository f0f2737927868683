// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Michele De Stefano

package cmd

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"time"

	"github.com/micdestefano/elegoo-robot-car4/pkg/car"
	"github.com/spf13/cobra"
)

var (
	snapshotOutput    string
	snapshotCameraURL string
)

// The camera serves full JPEG frames over the car's access point; give it
// more headroom than the command stream timeout.
const snapshotTimeout = 10 * time.Second

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Grab one frame from the camera module",
	Long: `Fetch a single JPEG frame from the camera module's HTTP capture endpoint
and write it to a file. Frames arriving in portrait orientation are
rotated to landscape, matching what the person-tracking code sees.

The camera module is a separate device on the car's access point; this
command does not touch the command connection, so it works while another
process is driving.`,
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "snapshot.jpg", "Output file")
	snapshotCmd.Flags().StringVar(&snapshotCameraURL, "camera-url", car.DefaultCameraURL, "Camera capture endpoint")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cam := car.NewCamera(snapshotCameraURL)

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	img, err := cam.Capture(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(snapshotOutput)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, nil); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	b := img.Bounds()
	fmt.Printf("Wrote %s (%dx%d)\n", snapshotOutput, b.Dx(), b.Dy())
	return nil
}
