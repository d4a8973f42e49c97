package jwtx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// RemoteKeySet keeps a KeySet in sync with an identity provider's JWKS
// endpoint. It is used when sessions are minted elsewhere and rollcall only
// verifies them.
type RemoteKeySet struct {
	URL      string
	Client   *http.Client
	Keys     *KeySet
	Interval time.Duration
	Logger   *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewRemoteKeySet returns a refresher for url. An interval of zero or less
// defaults to 10 minutes.
func NewRemoteKeySet(url string, keys *KeySet, interval time.Duration, logger *slog.Logger) *RemoteKeySet {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &RemoteKeySet{
		URL:      url,
		Client:   &http.Client{Timeout: 10 * time.Second},
		Keys:     keys,
		Interval: interval,
		Logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Refresh fetches the JWKS once and swaps it into Keys.
func (r *RemoteKeySet) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return fmt.Errorf("jwtx: build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("jwtx: fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwtx: fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var set JWKS
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("jwtx: decode jwks: %w", err)
	}

	return r.Keys.ResetFromJWKS(set)
}

// Start refreshes in the background until Stop. A failed refresh keeps the
// previous keys.
func (r *RemoteKeySet) Start() {
	go r.run()
}

func (r *RemoteKeySet) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *RemoteKeySet) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := r.Refresh(ctx); err != nil {
				r.Logger.Warn("jwks refresh failed, keeping previous keys", "url", r.URL, "error", err)
			} else {
				r.Logger.Debug("jwks refreshed", "url", r.URL)
			}
			cancel()
		case <-r.stopCh:
			return
		}
	}
}
