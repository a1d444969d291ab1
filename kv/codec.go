package kv

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrCorrupt is returned when a persisted value cannot be decoded.
var ErrCorrupt = errors.New("kv: corrupt value")

const codecVersion byte = 1

// Encode serializes v as a versioned JSON blob.
func Encode[V any](v V) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, codecVersion)
	return append(out, body...), nil
}

// Decode parses a blob produced by Encode.
func Decode[V any](data []byte) (V, error) {
	var v V
	if len(data) < 2 || data[0] != codecVersion {
		return v, ErrCorrupt
	}
	if err := json.Unmarshal(data[1:], &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return v, nil
}
