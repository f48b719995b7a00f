package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/roach88/bfvm/internal/ir"
)

// timeLayout is used for started_at/finished_at. Timestamps are stored for
// display only; ordering always uses seq.
const timeLayout = time.RFC3339Nano

var tapeEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("store: failed to create CBOR enc mode: %v", err))
	}
	tapeEncMode = em
}

// marshalSettings converts settings to canonical JSON TEXT for storage.
func marshalSettings(s ir.Settings) (string, error) {
	data, err := ir.MarshalCanonical(s.Canonical())
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	return string(data), nil
}

func unmarshalSettings(data string) (ir.Settings, error) {
	var s ir.Settings
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return ir.Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}

// marshalTape encodes the final tape as a CBOR array. A nil tape (a run
// refused before execution) is stored as NULL.
func marshalTape(cells []int64) ([]byte, error) {
	if cells == nil {
		return nil, nil
	}
	data, err := tapeEncMode.Marshal(cells)
	if err != nil {
		return nil, fmt.Errorf("marshal tape: %w", err)
	}
	return data, nil
}

func unmarshalTape(data []byte) ([]int64, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var cells []int64
	if err := cbor.Unmarshal(data, &cells); err != nil {
		return nil, fmt.Errorf("unmarshal tape: %w", err)
	}
	return cells, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
