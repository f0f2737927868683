// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomHandle draws a handle from printable ASCII including the JSON
// metacharacters, so the encoder's string escaping gets exercised.
func randomHandle(rng *rand.Rand) string {
	const chars = `abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_"\{}[]:, `
	n := rng.Intn(20) + 1
	b := make([]byte, n)
	for i := range b {
		b[i] = chars[rng.Intn(len(chars))]
	}
	return string(b)
}

// randomToken returns a brace-delimited token of letters and digits that
// cannot collide with a request reply.
func randomToken(rng *rand.Rand) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_"
	n := rng.Intn(12) + 1
	b := make([]byte, n)
	for i := range b {
		b[i] = chars[rng.Intn(len(chars))]
	}
	return "{" + string(b) + "}"
}

// ============================================================
// Encoder Fuzz Tests
// ============================================================

// TestFuzzEncoder_RandomCommands encodes random commands and verifies
// the frame is valid JSON that decodes back to the same fields
func TestFuzzEncoder_RandomCommands(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		cmd := Command{Opcode: rng.Intn(2000)}
		if rng.Intn(4) > 0 {
			cmd.Handle = randomHandle(rng)
		}
		if rng.Intn(2) == 1 {
			cmd.D1 = ptr(rng.Intn(512) - 256)
		}
		if rng.Intn(2) == 1 {
			cmd.D2 = ptr(rng.Intn(512) - 256)
		}

		frame := EncodeCommand(cmd)

		var decoded struct {
			H  *string `json:"H"`
			N  *int    `json:"N"`
			D1 *int    `json:"D1"`
			D2 *int    `json:"D2"`
		}
		if err := json.Unmarshal(frame, &decoded); err != nil {
			t.Fatalf("Round %d: frame %s is not valid JSON: %v", i, frame, err)
		}
		if decoded.N == nil || *decoded.N != cmd.Opcode {
			t.Errorf("Round %d: opcode did not round-trip in %s", i, frame)
		}
		if cmd.Handle == "" {
			if decoded.H != nil {
				t.Errorf("Round %d: empty handle appeared on the wire in %s", i, frame)
			}
		} else if decoded.H == nil || *decoded.H != cmd.Handle {
			t.Errorf("Round %d: handle %q did not round-trip in %s", i, cmd.Handle, frame)
		}
		if (cmd.D1 == nil) != (decoded.D1 == nil) || (cmd.D1 != nil && *decoded.D1 != *cmd.D1) {
			t.Errorf("Round %d: D1 did not round-trip in %s", i, frame)
		}
		if (cmd.D2 == nil) != (decoded.D2 == nil) || (cmd.D2 != nil && *decoded.D2 != *cmd.D2) {
			t.Errorf("Round %d: D2 did not round-trip in %s", i, frame)
		}
	}
}

// ============================================================
// Reply Stream Fuzz Tests
// ============================================================

// TestFuzzResponse_RandomChunks buries one reply in random noise tokens,
// splits the stream at random points and verifies Await still finds it
func TestFuzzResponse_RandomChunks(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		id := fmt.Sprintf("Ultrasonic_Value_Request_%d", rng.Uint32())
		reply := "{" + id + "_" + strconv.Itoa(rng.Intn(1000)) + "}"

		var stream strings.Builder
		pos := rng.Intn(6)
		for j := 0; j < 6; j++ {
			if j == pos {
				stream.WriteString(reply)
			}
			switch rng.Intn(3) {
			case 0:
				stream.WriteString(heartbeatToken)
			case 1:
				stream.WriteString(okToken)
			case 2:
				stream.WriteString(randomToken(rng))
			}
		}

		var chunks []string
		rest := stream.String()
		for len(rest) > 0 {
			n := rng.Intn(len(rest)) + 1
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}

		buf := NewResponseBuffer(&chunkConn{chunks: chunks}, NewStatistics())
		got, err := buf.Await(numericReplyPattern(id))
		if err != nil {
			t.Fatalf("Round %d: Await failed on stream %q: %v", i, stream.String(), err)
		}
		if got != reply {
			t.Errorf("Round %d: Await = %q, want %q", i, got, reply)
		}
	}
}

// ============================================================
// Decoder Fuzz Tests
// ============================================================

// TestFuzzDecodeSample_RandomText feeds random bytes and corrupted
// replies to the sample decoder and verifies it doesn't panic
func TestFuzzDecodeSample_RandomText(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	valid := `{"id":"MPU_Request_1","t":1500,"a":[0,0,-16384],"g":[0,0,0]}`
	for i := 0; i < rounds; i++ {
		length := rng.Intn(128)
		data := make([]byte, length)
		rng.Read(data)
		DecodeSample(string(data))

		corrupted := []byte(valid)
		idx := rng.Intn(len(corrupted))
		corrupted[idx] ^= byte(rng.Intn(255) + 1)
		DecodeSample(string(corrupted))
	}
}

// ============================================================
// Formatter Fuzz Tests
// ============================================================

// TestFuzzFormatter_RandomCommands formats random commands and verifies
// the output is never empty
func TestFuzzFormatter_RandomCommands(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		cmd := Command{Handle: randomHandle(rng), Opcode: rng.Intn(2000)}
		if rng.Intn(2) == 1 {
			cmd.D1 = ptr(rng.Intn(512) - 256)
		}
		if rng.Intn(2) == 1 {
			cmd.D2 = ptr(rng.Intn(512) - 256)
		}
		if FormatCommand(cmd) == "" {
			t.Errorf("Round %d: FormatCommand returned empty string", i)
		}
		if FormatOpcode(rng.Intn(2000)) == "" {
			t.Errorf("Round %d: FormatOpcode returned empty string", i)
		}
	}
}
