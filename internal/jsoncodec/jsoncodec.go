// Package jsoncodec centralises JSON handling so every component encodes and
// decodes payloads through the same sonic configuration.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

// ConfigStd matches encoding/json semantics, which keeps webhook payload
// decoding and HTTP response encoding predictable.
var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// Encode writes v to w followed by a newline, mirroring json.Encoder.
func Encode(w io.Writer, v any) error {
	enc := defaultConfig.NewEncoder(w)
	return enc.Encode(v)
}

// Decode reads a single JSON value from r into v.
func Decode(r io.Reader, v any) error {
	dec := defaultConfig.NewDecoder(r)
	return dec.Decode(v)
}
