// Package json contains utilities for handling JSON.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxBodyBytes caps request bodies decoded with DecodeBody.
const MaxBodyBytes = 16 << 10

// DecodeJSON decodes a JSON object.
func DecodeJSON(dst any, decoder *json.Decoder) error {
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decoding json: %w", err)
	}

	// Ensure no extra tokens after decoding
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected token after JSON object: %w", err)
	}
	return nil
}

// DecodeBody decodes a single JSON object from r, rejecting unknown fields
// and bodies larger than MaxBodyBytes.
func DecodeBody(r io.Reader, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r, MaxBodyBytes))
	decoder.DisallowUnknownFields()
	return DecodeJSON(dst, decoder)
}
