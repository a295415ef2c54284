// Package backend runs circuits on a remote execution backend over a websocket.
//
// Every job is one message and every result is one message, correlated by ID, so many jobs
// can be in flight on the same connection. Text frames carry JSON; binary frames carry
// msgpack with the same field names. A server always answers in the frame type it was sent.
package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aristath/riimtools/internal/domain"
	"github.com/aristath/riimtools/internal/modules/noise"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
)

// JobMessage submits one circuit
type JobMessage struct {
	ID                string             `json:"id"`
	QASM              string             `json:"qasm"`
	NoiseModel        *noise.Model       `json:"noise_model,omitempty"`
	Shots             int                `json:"shots"`
	CouplingMap       domain.CouplingMap `json:"coupling_map,omitempty"`
	OptimizationLevel int                `json:"optimization_level"`
}

// ResultMessage answers the job with the same ID. Error is set instead of Counts on failure.
type ResultMessage struct {
	ID      string        `json:"id"`
	Counts  domain.Counts `json:"counts,omitempty"`
	Backend string        `json:"backend,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func encode(typ websocket.MessageType, v interface{}) ([]byte, error) {
	if typ == websocket.MessageText {
		return json.Marshal(v)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(typ websocket.MessageType, data []byte, v interface{}) error {
	if typ == websocket.MessageText {
		return json.Unmarshal(data, v)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("msgpack: %w", err)
	}
	return nil
}
