// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fxamacker/cbor/v2"
	"github.com/micdestefano/elegoo-robot-car4/pkg/car"
	"github.com/spf13/cobra"
)

var (
	sensorsInterval   time.Duration
	sensorsCount      int
	sensorsIR         bool
	sensorsObstacle   bool
	sensorsGround     bool
	sensorsCheck      bool
	sensorsMQTTBroker string
	sensorsMQTTTopic  string
	sensorsRecord     string
)

// sensorReading is one polling round. The same struct goes out as JSON
// over MQTT and as CBOR when recording to disk; fxamacker/cbor honors
// the json tags.
type sensorReading struct {
	Time      time.Time       `json:"time"`
	T         float64         `json:"t"` // firmware clock, s
	Accel     [3]float64      `json:"a"` // bias-corrected, g
	Gyro      [3]float64      `json:"g"` // bias-corrected, deg/s
	Distance  float64         `json:"distance_cm"`
	IR        *car.IRReadings `json:"ir,omitempty"`
	Obstacle  *bool           `json:"obstacle,omitempty"`
	Lifted    *bool           `json:"lifted,omitempty"`
	Anomalies []string        `json:"anomalies,omitempty"`
}

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "Stream MPU and ultrasonic readings",
	Long: `Poll the car's sensors at a fixed interval and print one line per round:
the MPU-6050 sample (bias-corrected) and the calibrated ultrasonic
distance, plus the line-tracking, obstacle and ground readings on
request.

With --check every round runs through the range and monotonicity
validators and anomalies are flagged inline. With --mqtt-broker each
round is also published as JSON (retained, QoS 0) so dashboards pick up
the latest state on subscribe. With --record rounds are appended to a
file as CBOR, one record each.

Examples:
  # Ten rounds at the default rate
  elegoo-car sensors --count 10

  # Everything, validated, published and recorded
  elegoo-car sensors --ir --obstacle --ground --check \
    --mqtt-broker tcp://localhost:1883 --mqtt-topic car/telemetry \
    --record session.cbor`,
	RunE: runSensors,
}

func init() {
	rootCmd.AddCommand(sensorsCmd)
	sensorsCmd.Flags().DurationVar(&sensorsInterval, "interval", time.Second, "Delay between polling rounds")
	sensorsCmd.Flags().IntVar(&sensorsCount, "count", 0, "Number of rounds (0 = until interrupted)")
	sensorsCmd.Flags().BoolVar(&sensorsIR, "ir", false, "Include the line-tracking IR sensors")
	sensorsCmd.Flags().BoolVar(&sensorsObstacle, "obstacle", false, "Include the obstacle check")
	sensorsCmd.Flags().BoolVar(&sensorsGround, "ground", false, "Include the ground-contact check")
	sensorsCmd.Flags().BoolVar(&sensorsCheck, "check", false, "Validate readings and flag anomalies")
	sensorsCmd.Flags().StringVar(&sensorsMQTTBroker, "mqtt-broker", "", "MQTT broker URL (tcp://host:port)")
	sensorsCmd.Flags().StringVar(&sensorsMQTTTopic, "mqtt-topic", "car/telemetry", "MQTT topic for published rounds")
	sensorsCmd.Flags().StringVar(&sensorsRecord, "record", "", "Append rounds to this file as CBOR")
}

func runSensors(cmd *cobra.Command, args []string) error {
	drv, err := openDriver()
	if err != nil {
		return err
	}
	defer drv.Close()

	var publisher mqtt.Client
	if sensorsMQTTBroker != "" {
		opts := mqtt.NewClientOptions().
			AddBroker(sensorsMQTTBroker).
			SetClientID("elegoo-car-sensors")
		publisher = mqtt.NewClient(opts)
		if token := publisher.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("MQTT connect: %v", token.Error())
		}
		defer publisher.Disconnect(250)
		fmt.Printf("Publishing to %s (%s)\n", sensorsMQTTBroker, sensorsMQTTTopic)
	}

	var recorder *cbor.Encoder
	if sensorsRecord != "" {
		f, err := os.OpenFile(sensorsRecord, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		recorder = cbor.NewEncoder(f)
		fmt.Printf("Recording to %s\n", sensorsRecord)
	}

	// Ctrl+C ends the loop instead of the process so the deferred
	// closes still run.
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupted)

	ticker := time.NewTicker(sensorsInterval)
	defer ticker.Stop()

	fmt.Printf("Polling every %s, Ctrl+C to stop\n\n", sensorsInterval)

	var prev *car.Sample
loop:
	for n := 0; sensorsCount == 0 || n < sensorsCount; n++ {
		if n > 0 {
			select {
			case <-interrupted:
				fmt.Println("\nInterrupted")
				break loop
			case <-ticker.C:
			}
		}

		sample, err := drv.MPUData()
		if err != nil {
			if car.IsTimeout(err) {
				log.Printf("MPU read timed out, skipping round")
				continue
			}
			return err
		}
		distance, err := drv.UltrasonicDistance()
		if err != nil {
			if car.IsTimeout(err) {
				log.Printf("ultrasonic read timed out, skipping round")
				continue
			}
			return err
		}

		corrected := drv.Offsets().Correct(sample)
		reading := sensorReading{
			Time:     time.Now(),
			T:        corrected.T,
			Accel:    [3]float64{corrected.Accel.X, corrected.Accel.Y, corrected.Accel.Z},
			Gyro:     [3]float64{corrected.Gyro.X, corrected.Gyro.Y, corrected.Gyro.Z},
			Distance: distance,
		}

		if sensorsIR {
			ir, err := drv.IRAll()
			if err != nil {
				return err
			}
			reading.IR = &ir
		}
		if sensorsObstacle {
			obstacle, err := drv.ObstacleAhead()
			if err != nil {
				return err
			}
			reading.Obstacle = &obstacle
		}
		if sensorsGround {
			lifted, err := drv.FarFromGround()
			if err != nil {
				return err
			}
			reading.Lifted = &lifted
		}

		if sensorsCheck {
			// Range checks run on the uncorrected sample; the published
			// values have the biases removed.
			var verrs []car.ValidationError
			verrs = append(verrs, car.ValidateSample(sample)...)
			if prev != nil {
				verrs = append(verrs, car.ValidateSamplePair(*prev, sample)...)
			}
			verrs = append(verrs, car.ValidateUltrasonic(distance)...)
			if reading.IR != nil {
				verrs = append(verrs, car.ValidateIRReadings(*reading.IR)...)
			}
			for _, e := range verrs {
				reading.Anomalies = append(reading.Anomalies, e.Message)
			}
		}
		prevSample := sample
		prev = &prevSample

		line := fmt.Sprintf("%s  %s", car.FormatSample(corrected), car.FormatDistance(distance))
		if reading.IR != nil {
			line += "  " + car.FormatIRReadings(*reading.IR)
		}
		if reading.Obstacle != nil {
			line += fmt.Sprintf("  obstacle=%t", *reading.Obstacle)
		}
		if reading.Lifted != nil {
			line += fmt.Sprintf("  lifted=%t", *reading.Lifted)
		}
		fmt.Println(line)
		for _, msg := range reading.Anomalies {
			fmt.Printf("  [ANOMALY] %s\n", msg)
		}

		if publisher != nil {
			payload, err := json.Marshal(reading)
			if err != nil {
				return err
			}
			if token := publisher.Publish(sensorsMQTTTopic, 0, true, payload); token.Wait() && token.Error() != nil {
				log.Printf("MQTT publish failed: %v", token.Error())
			}
		}
		if recorder != nil {
			if err := recorder.Encode(reading); err != nil {
				return fmt.Errorf("recording round: %v", err)
			}
		}
	}

	fmt.Println()
	fmt.Print(drv.Stats().String())
	return nil
}
