// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"fmt"
	"time"
)

// Statistics tracks session counters for one driver. The driver updates
// it from its own goroutine; frontends that render live statistics should
// copy the struct on their side of the channel.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	CommandsSent   uint64
	Confirmations  uint64
	SensorReplies  uint64
	Timeouts       uint64
	ScanRetries    uint64
	DecodeFailures uint64
	NoiseTokens    uint64
	BytesSent      uint64
	BytesReceived  uint64

	// Rates (calculated)
	CommandRate float64 // commands/sec
	ErrorRate   float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordCommand counts one sent command of the given frame size
func (s *Statistics) RecordCommand(frameBytes int) {
	s.CommandsSent++
	s.BytesSent += uint64(frameBytes)
	s.LastUpdateTime = time.Now()
}

// RecordConfirmation counts one received _ok confirmation
func (s *Statistics) RecordConfirmation() {
	s.Confirmations++
	s.LastUpdateTime = time.Now()
}

// RecordSensorReply counts one successfully parsed sensor reply
func (s *Statistics) RecordSensorReply() {
	s.SensorReplies++
	s.LastUpdateTime = time.Now()
}

// RecordTimeout counts one reply wait that hit the connection timeout
func (s *Statistics) RecordTimeout() {
	s.Timeouts++
	s.LastUpdateTime = time.Now()
}

// RecordScanRetry counts one scan measurement repeated after a timeout
func (s *Statistics) RecordScanRetry() {
	s.ScanRetries++
	s.LastUpdateTime = time.Now()
}

// RecordNoiseTokens counts unsolicited noise tokens stripped from the
// reply stream
func (s *Statistics) RecordNoiseTokens(n int) {
	s.NoiseTokens += uint64(n)
}

// RecordDecodeFailure counts one reply that matched but did not parse
func (s *Statistics) RecordDecodeFailure() {
	s.DecodeFailures++
	s.LastUpdateTime = time.Now()
}

// RecordReceived counts raw bytes read from the connection
func (s *Statistics) RecordReceived(n int) {
	s.BytesReceived += uint64(n)
}

// CalculateRates calculates command and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.CommandRate = float64(s.CommandsSent) / elapsed
		s.ErrorRate = float64(s.Timeouts+s.DecodeFailures) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Session statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Commands Sent:   %8d\n", s.CommandsSent)
	result += fmt.Sprintf("Confirmations:   %8d\n", s.Confirmations)
	result += fmt.Sprintf("Sensor Replies:  %8d\n", s.SensorReplies)

	if s.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d\n", s.Timeouts)
	}
	if s.ScanRetries > 0 {
		result += fmt.Sprintf("Scan Retries:    %8d\n", s.ScanRetries)
	}
	if s.DecodeFailures > 0 {
		result += fmt.Sprintf("Decode Failures: %8d\n", s.DecodeFailures)
	}
	if s.NoiseTokens > 0 {
		result += fmt.Sprintf("Noise Tokens:    %8d\n", s.NoiseTokens)
	}

	result += fmt.Sprintf("Bytes Sent:      %8d\n", s.BytesSent)
	result += fmt.Sprintf("Bytes Received:  %8d\n", s.BytesReceived)
	result += fmt.Sprintf("Command Rate:    %8.1f cmds/sec\n", s.CommandRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "========================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.CommandsSent = 0
	s.Confirmations = 0
	s.SensorReplies = 0
	s.Timeouts = 0
	s.ScanRetries = 0
	s.DecodeFailures = 0
	s.NoiseTokens = 0
	s.BytesSent = 0
	s.BytesReceived = 0
	s.CommandRate = 0
	s.ErrorRate = 0
}
