package cryptox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// GenerateEd25519Key returns a fresh Ed25519 private key as PKCS8 PEM. This
// is the format jwtx.NewSignerEdDSA expects.
func GenerateEd25519Key() ([]byte, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate Ed25519 key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal PKCS8 key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// WriteEd25519KeyFile generates a key and writes it to path with 0600
// permissions. It refuses to overwrite an existing file.
func WriteEd25519KeyFile(path string) ([]byte, error) {
	pemBytes, err := GenerateEd25519Key()
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create key file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(pemBytes); err != nil {
		return nil, fmt.Errorf("cryptox: write key file: %w", err)
	}
	return pemBytes, nil
}
