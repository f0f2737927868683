// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// ResponseBuffer accumulates the reply stream and matches expected reply
// patterns against it.
//
// The firmware interleaves confirmations, sensor replies and unsolicited
// {Heartbeat}/{ok} noise on one unframed stream, and replies can arrive
// split across reads or out of request order. The buffer reads in chunks,
// strips noise tokens from the reassembled text, and consumes only the
// span matched by each expectation so that replies that arrived early
// stay available for later expectations.
type ResponseBuffer struct {
	conn    Connection
	stats   *Statistics
	pending string
	chunk   []byte
}

// NewResponseBuffer wraps a connection. stats may be nil.
func NewResponseBuffer(conn Connection, stats *Statistics) *ResponseBuffer {
	return &ResponseBuffer{
		conn:  conn,
		stats: stats,
		chunk: make([]byte, recvChunkSize),
	}
}

// Reset discards all buffered reply text.
func (b *ResponseBuffer) Reset() {
	b.pending = ""
}

// Pending returns the buffered reply text not yet consumed by a match.
func (b *ResponseBuffer) Pending() string {
	return b.pending
}

// Await blocks until the stream yields text matching pattern, consumes
// the matched span from the buffer, and returns the matched text. Reads
// honor the connection timeout; expiry surfaces as ErrReadTimeout.
func (b *ResponseBuffer) Await(pattern *regexp.Regexp) (string, error) {
	loc := pattern.FindStringIndex(b.pending)
	for loc == nil {
		n, err := b.conn.Read(b.chunk)
		if n > 0 {
			b.pending += string(b.chunk[:n])
			noise := strings.Count(b.pending, heartbeatToken) + strings.Count(b.pending, okToken)
			b.pending = strings.ReplaceAll(b.pending, heartbeatToken, "")
			b.pending = strings.ReplaceAll(b.pending, okToken, "")
			if b.stats != nil {
				b.stats.RecordReceived(n)
				b.stats.RecordNoiseTokens(noise)
			}
		}
		if err != nil {
			return "", errors.Wrapf(err, "awaiting reply %q", pattern.String())
		}
		loc = pattern.FindStringIndex(b.pending)
	}
	match := b.pending[loc[0]:loc[1]]
	b.pending = b.pending[:loc[0]] + b.pending[loc[1]:]
	return match, nil
}
