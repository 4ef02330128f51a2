// Package directory maintains the trusted-issuer directory used to verify
// card signatures. Snapshots follow the VCI directory snapshot format and
// are immutable once built; refreshing swaps in a new snapshot without
// touching one an in-flight verification may hold.
package directory

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrUnknownIssuer = errors.New("issuer is not in the trust directory")
	ErrUnknownKey    = errors.New("no trusted key matches the card's key id")
)

type snapshotFile struct {
	Directory  string       `json:"directory"`
	Time       string       `json:"time"`
	IssuerInfo []issuerInfo `json:"issuerInfo"`
}

type issuerInfo struct {
	Issuer issuerMeta `json:"issuer"`
	Keys   []JWK      `json:"keys"`
}

type issuerMeta struct {
	Iss  string `json:"iss"`
	Name string `json:"name"`
}

// JWK is the subset of a JSON Web Key the directory carries. SMART Health
// Card issuers sign with P-256, so only EC/P-256 keys are materialized.
type JWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// Directory is an immutable snapshot of trusted issuer signing keys.
type Directory struct {
	issuers map[string]map[string]*ecdsa.PublicKey
}

// Parse builds a Directory from snapshot JSON. Keys that are not EC P-256,
// or that fail to decode, are skipped rather than failing the whole
// snapshot; one issuer's bad key must not take the directory down.
func Parse(data []byte) (*Directory, error) {
	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse directory snapshot: %w", err)
	}
	if len(file.IssuerInfo) == 0 {
		return nil, fmt.Errorf("directory snapshot lists no issuers")
	}

	issuers := make(map[string]map[string]*ecdsa.PublicKey, len(file.IssuerInfo))
	for _, info := range file.IssuerInfo {
		if info.Issuer.Iss == "" {
			continue
		}
		keys := make(map[string]*ecdsa.PublicKey, len(info.Keys))
		for _, jwk := range info.Keys {
			key, err := jwk.publicKey()
			if err != nil {
				continue
			}
			keys[jwk.Kid] = key
		}
		if len(keys) > 0 {
			issuers[info.Issuer.Iss] = keys
		}
	}
	if len(issuers) == 0 {
		return nil, fmt.Errorf("directory snapshot contains no usable keys")
	}
	return &Directory{issuers: issuers}, nil
}

// Key resolves the signing key for an issuer and key id, implementing the
// verifier's directory contract.
func (d *Directory) Key(issuer, kid string) (*ecdsa.PublicKey, error) {
	keys, ok := d.issuers[issuer]
	if !ok {
		return nil, ErrUnknownIssuer
	}
	key, ok := keys[kid]
	if !ok {
		return nil, ErrUnknownKey
	}
	return key, nil
}

// Issuers reports how many issuers the snapshot carries, for logs and health.
func (d *Directory) Issuers() int {
	return len(d.issuers)
}

func (k JWK) publicKey() (*ecdsa.PublicKey, error) {
	if k.Kty != "EC" || k.Crv != "P-256" {
		return nil, fmt.Errorf("unsupported key type %s/%s", k.Kty, k.Crv)
	}
	x, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("decode x coordinate: %w", err)
	}
	y, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("decode y coordinate: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}
