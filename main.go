// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano
//
// elegoo-car - CLI for the ELEGOO Smart Robot Car (V4)
//
// Drives the car, reads its sensors and runs its camera over the
// TCP command port, a WebSocket bridge or a serial link.

package main

import (
	"os"

	"github.com/micdestefano/elegoo-robot-car4/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
