package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

// Identity is everything the service needs to trust a session.
type Identity struct {
	Keys     *jwtx.KeySet
	Verifier jwtx.Verifier

	// Signer is set in keyfile mode only.
	Signer jwtx.Signer
	// Remote is set in jwks mode only.
	Remote *jwtx.RemoteKeySet
}

// InitIdentity loads the session keys for the configured mode.
//
//   - keyfile: rollcall holds an Ed25519 private key, publishes its public
//     half at /.well-known/jwks.json and can mint sessions itself.
//   - jwks: sessions come from an external identity provider; its key set
//     is fetched now and refreshed in the background once Start is called.
//     A failed first fetch is logged and reported by /readyz.
func InitIdentity(ctx context.Context, cfg Config, logger *slog.Logger) (*Identity, error) {
	keys := jwtx.NewKeySet()
	id := &Identity{
		Keys:     keys,
		Verifier: jwtx.NewVerifierEdDSA(keys, cfg.Issuer, cfg.Audience),
	}

	switch cfg.IdentityMode {
	case IdentityKeyfile:
		signer, err := LoadSigner(cfg.SigningKeyFile)
		if err != nil {
			return nil, err
		}
		if err := keys.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("register signing key: %w", err)
		}
		id.Signer = signer
		logger.Info("session keys loaded", "mode", cfg.IdentityMode, "kid", signer.KID())

	case IdentityJWKS:
		id.Remote = jwtx.NewRemoteKeySet(cfg.JWKSURL, keys, cfg.JWKSRefreshInterval, logger)
		fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := id.Remote.Refresh(fetchCtx); err != nil {
			logger.Warn("initial jwks fetch failed", "url", cfg.JWKSURL, "error", err)
		} else {
			logger.Info("session keys loaded", "mode", cfg.IdentityMode, "url", cfg.JWKSURL)
		}

	default:
		return nil, fmt.Errorf("unknown identity mode %q", cfg.IdentityMode)
	}

	return id, nil
}

// LoadSigner reads an Ed25519 PEM key written by "rollcall keygen".
func LoadSigner(path string) (jwtx.Signer, error) {
	pemKey, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	signer, err := jwtx.NewSignerEdDSA("", pemKey)
	if err != nil {
		return nil, fmt.Errorf("parse signing key %s: %w", path, err)
	}
	return signer, nil
}
