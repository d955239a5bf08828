// Package jsonx is the JSON codec used for vendor bodies and stream events.
package jsonx

import (
	"io"

	"github.com/bytedance/sonic"
)

// std sorts map keys so encoded request bodies are deterministic. HTML is
// left unescaped: tool outputs are embedded as strings the model reads.
var std = sonic.Config{
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
}.Froze()

// Marshal encodes v.
func Marshal(v any) ([]byte, error) {
	return std.Marshal(v)
}

// MarshalString encodes v and returns it as a string.
func MarshalString(v any) (string, error) {
	return std.MarshalToString(v)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	return std.Unmarshal(data, v)
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) sonic.Encoder {
	return std.NewEncoder(w)
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) sonic.Decoder {
	return std.NewDecoder(r)
}
