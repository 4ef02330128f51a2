package shc

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
	"strings"
)

const (
	// Prefix starts every SMART Health Card QR payload.
	Prefix = "shc:/"

	// maxPayloadBytes bounds the inflated payload so a hostile card cannot
	// balloon memory.
	maxPayloadBytes = 1 << 20
)

// DecodeNumeric converts the numeric QR form into the compact JWS string.
// Each digit pair encodes one ASCII byte offset by 45.
func DecodeNumeric(raw string) (string, error) {
	body, ok := strings.CutPrefix(raw, Prefix)
	if !ok {
		return "", fmt.Errorf("missing %q prefix", Prefix)
	}
	if len(body) == 0 || len(body)%2 != 0 {
		return "", fmt.Errorf("numeric payload must be a non-empty even-length digit string")
	}
	var b strings.Builder
	b.Grow(len(body) / 2)
	for i := 0; i < len(body); i += 2 {
		hi, lo := body[i], body[i+1]
		if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
			return "", fmt.Errorf("non-digit character at offset %d", i)
		}
		b.WriteByte((hi-'0')*10 + (lo - '0') + 45)
	}
	return b.String(), nil
}

// inflate decompresses a raw-DEFLATE blob, as produced by the zip=DEF JWS
// header.
func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close() //nolint:errcheck // reader over an in-memory buffer

	out, err := io.ReadAll(io.LimitReader(r, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("inflate payload: %w", err)
	}
	if len(out) > maxPayloadBytes {
		return nil, fmt.Errorf("inflated payload exceeds %d bytes", maxPayloadBytes)
	}
	return out, nil
}
