// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// EncodeCommand serializes a command to its wire form: one JSON object
// with members in H, N, D1, D2 order, ", " between members and ": " after
// each key. encoding/json cannot produce this layout (it sorts keys and
// drops the member spacing), so the frame is written by hand; only the
// handle goes through the JSON string escaper.
func EncodeCommand(cmd Command) []byte {
	var b bytes.Buffer
	b.WriteByte('{')
	if cmd.Handle != "" {
		b.WriteString(`"H": `)
		handle, _ := json.Marshal(cmd.Handle)
		b.Write(handle)
		b.WriteString(", ")
	}
	b.WriteString(`"N": `)
	b.WriteString(strconv.Itoa(cmd.Opcode))
	if cmd.D1 != nil {
		b.WriteString(`, "D1": `)
		b.WriteString(strconv.Itoa(*cmd.D1))
	}
	if cmd.D2 != nil {
		b.WriteString(`, "D2": `)
		b.WriteString(strconv.Itoa(*cmd.D2))
	}
	b.WriteByte('}')
	return b.Bytes()
}
