package jwtx

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds the public keys sessions are verified against. It is safe
// for concurrent use; RemoteKeySet swaps its contents while handlers read.
type KeySet struct {
	mu  sync.RWMutex
	jks JWKS
	pub map[string]ed25519.PublicKey
}

func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]ed25519.PublicKey)}
}

// AddSigner registers the signer's public half.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

func (k *KeySet) AddJWK(j JWK) error {
	key, err := parseJWK(j)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub[j.Kid] = key
	k.jks.Keys = append(k.jks.Keys, j)
	return nil
}

// Get returns the public key for kid.
func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// PublicJWKS is a snapshot for serving.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return JWKS{Keys: append([]JWK(nil), k.jks.Keys...)}
}

// IsReady reports whether any key is loaded. Used by /readyz.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}

// ResetFromJWKS replaces every key. Keys we cannot use are skipped; the call
// fails only when nothing usable remains, so one exotic key published by the
// identity provider does not lock everybody out.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	next := make(map[string]ed25519.PublicKey, len(jwks.Keys))
	kept := make([]JWK, 0, len(jwks.Keys))
	var firstErr error
	for _, j := range jwks.Keys {
		key, err := parseJWK(j)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		next[j.Kid] = key
		kept = append(kept, j)
	}
	if len(next) == 0 {
		if firstErr == nil {
			firstErr = errors.New("jwtx: empty JWKS")
		}
		return firstErr
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub = next
	k.jks = JWKS{Keys: kept}
	return nil
}

func parseJWK(j JWK) (ed25519.PublicKey, error) {
	if j.Kty != "OKP" {
		return nil, fmt.Errorf("jwtx: unsupported kty %q", j.Kty)
	}
	if j.Crv != "Ed25519" {
		return nil, fmt.Errorf("jwtx: unsupported OKP curve %q", j.Crv)
	}
	if j.Kid == "" {
		return nil, fmt.Errorf("%w: JWK without kid", ErrMalformed)
	}
	xb, err := base64.RawURLEncoding.DecodeString(j.X)
	if err != nil {
		return nil, fmt.Errorf("jwtx: decode x: %w", err)
	}
	if len(xb) != ed25519.PublicKeySize {
		return nil, errors.New("jwtx: invalid Ed25519 public key size")
	}
	return ed25519.PublicKey(xb), nil
}
