package shc

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Directory is the minimal view of the trust directory the verifier needs.
// Implementations must treat a handed-out snapshot as immutable.
type Directory interface {
	// Key resolves the signing key for an issuer and key id, returning an
	// error describing why resolution failed otherwise.
	Key(issuer, kid string) (*ecdsa.PublicKey, error)
}

// Result reports decoding and signature verification of one card. A bad
// card is reported through Verified and Reason, never as a Go error, so a
// malformed credential can never fault the request path.
type Result struct {
	Verified bool
	Reason   string
	Payload  *Payload
}

type header struct {
	Alg string `json:"alg"`
	Zip string `json:"zip"`
	Kid string `json:"kid"`
}

// Verifier decodes a SMART Health Card and checks its ES256 signature
// against a trust directory. It holds no per-request state and is safe for
// concurrent use.
type Verifier struct {
	now func() time.Time
}

// Option configures the Verifier.
type Option func(*Verifier)

// WithClock overrides the time source for nbf/exp evaluation in tests.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func fail(reason string) *Result {
	return &Result{Reason: reason}
}

// Verify decodes raw QR text and validates its signature against dir. It is
// a pure function of its inputs plus the directory snapshot's currency.
func (v *Verifier) Verify(raw string, dir Directory) *Result {
	jws, err := DecodeNumeric(raw)
	if err != nil {
		return fail(fmt.Sprintf("decoding QR data: %v", err))
	}

	parts := strings.Split(jws, ".")
	if len(parts) != 3 {
		return fail("malformed JWS: expected 3 segments")
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return fail("malformed JWS header encoding")
	}
	var hdr header
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return fail("malformed JWS header")
	}
	if hdr.Alg != "ES256" {
		return fail(fmt.Sprintf("unsupported signature algorithm %q", hdr.Alg))
	}
	if hdr.Kid == "" {
		return fail("JWS header carries no key id")
	}

	if hdr.Zip != "DEF" {
		return fail(fmt.Sprintf("unsupported payload compression %q", hdr.Zip))
	}

	payloadRaw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return fail("malformed JWS payload encoding")
	}
	if payloadRaw, err = inflate(payloadRaw); err != nil {
		return fail(fmt.Sprintf("decompressing payload: %v", err))
	}

	var payload Payload
	if err := json.Unmarshal(payloadRaw, &payload); err != nil {
		return fail("payload is not valid JSON")
	}
	if payload.Issuer == "" {
		return fail("payload carries no issuer")
	}

	key, err := dir.Key(payload.Issuer, hdr.Kid)
	if err != nil {
		return fail(err.Error())
	}

	// Strict decoding rejects non-canonical trailing bits, so two distinct
	// signature segments can never decode to the same signature bytes.
	sig, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return fail("malformed JWS signature encoding")
	}
	signingInput := parts[0] + "." + parts[1]
	if err := jwt.SigningMethodES256.Verify(signingInput, sig, key); err != nil {
		return fail("signature is invalid")
	}

	now := v.now()
	if payload.NotBefore > 0 && now.Before(time.Unix(int64(payload.NotBefore), 0)) {
		return fail("card is not yet valid")
	}
	if payload.Expiration > 0 && now.After(time.Unix(int64(payload.Expiration), 0)) {
		return fail("card has expired")
	}

	return &Result{Verified: true, Payload: &payload}
}
