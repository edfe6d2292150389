package defs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Frame is the JSON envelope of every websocket message.
// ID correlates a request with its ack; zero means no ack is expected.
type Frame struct {
	Event string        `json:"event"`
	ID    uint64        `json:"id,omitempty"`
	Args  []interface{} `json:"args,omitempty"`
}

// ErrorData represents data sent with error events
type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ProgressMessage is the single-argument form of a progress event
type ProgressMessage struct {
	TaskMeta map[string]interface{} `mapstructure:"taskMeta"`
	Progress interface{}            `mapstructure:"progress"`
}

// ParseCredential returns the last whitespace separated token, so "Bearer <key>" and "<key>" both work
func ParseCredential(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// DecodeArg converts a loosely typed event argument into out
func DecodeArg(arg interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(arg); err != nil {
		return fmt.Errorf("failed to decode event argument: %w", err)
	}
	return nil
}

// RawArg re-encodes an event argument as JSON
func RawArg(arg interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event argument: %w", err)
	}
	return data, nil
}
