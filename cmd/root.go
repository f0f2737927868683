// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Michele De Stefano

package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/micdestefano/elegoo-robot-car4/pkg/car"
	"github.com/spf13/cobra"
)

var (
	// TCP connection flags (the stock firmware access point)
	carHost   string
	carPort   int
	ioTimeout = car.DefaultTimeout

	// Serial connection flags
	serialPort string
	baudRate   int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "elegoo-car",
	Short: "Elegoo Smart Robot Car v4 controller",
	Long: `elegoo-car - drive and probe an Elegoo Smart Robot Car v4 from the host.

The stock firmware listens on TCP port 100 of the car's WiFi access point and
speaks single-line JSON commands. Subcommands cover manual teleoperation,
ultrasonic direction scans, gyro-controlled turns, homing toward the widest
clearance, sensor streaming, camera snapshots, and ultrasonic calibration.

Connection modes:
  TCP (default): --host 192.168.4.1 --port 100
  Serial:        --serial-port /dev/ttyUSB0 [--baud 115200]
  WebSocket:     --ws-url ws://host/path [--ws-username user]

For WebSocket authentication, the password is read from the CAR_WS_PASSWORD
environment variable, or prompted interactively if not set. A --password
flag is intentionally not provided to avoid leaking credentials in shell
history.`,
	Version: "1.0.0",
}

func init() {
	// TCP connection flags
	rootCmd.PersistentFlags().StringVar(&carHost, "host", car.DefaultHost, "Car host (TCP)")
	rootCmd.PersistentFlags().IntVar(&carPort, "port", car.DefaultPort, "Car command port (TCP)")
	rootCmd.PersistentFlags().DurationVar(&ioTimeout, "timeout", car.DefaultTimeout, "Reply read timeout")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVar(&serialPort, "serial-port", "", "Serial port device (UART wiring instead of WiFi)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVar(&wsURL, "ws-url", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "ws-username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "ws-no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every frame sent and reply received")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// driverOptions maps the root flags onto driver options.
func driverOptions() []car.Option {
	var opts []car.Option
	if verbose {
		opts = append(opts, car.WithLogger(log.New(os.Stderr, "", log.LstdFlags)))
	}
	return opts
}

// openDriver opens the configured connection and runs the driver startup
// sequence, including MPU bias calibration. The car must sit still until
// this returns.
func openDriver() (*car.Driver, error) {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return nil, err
	}

	fmt.Printf("Connected (%s)\n", connInfo)
	fmt.Printf("Calibrating MPU offsets, keep the car still ...\n")

	drv, err := car.NewDriver(conn, driverOptions()...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return drv, nil
}
