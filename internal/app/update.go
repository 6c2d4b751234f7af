package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// UpdateChecker polls a release endpoint for the latest version tag.
// Failures are transient: the last successfully fetched tag stays
// cached and the check never blocks anything else.
type UpdateChecker struct {
	url    string
	client *http.Client

	mu      sync.Mutex
	latest  string
	lastErr error
}

// NewUpdateChecker builds a checker for a GitHub-style latest-release
// endpoint.
func NewUpdateChecker(url string) *UpdateChecker {
	return &UpdateChecker{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Latest returns the cached tag and whether one has been fetched yet.
func (u *UpdateChecker) Latest() (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.latest, u.latest != ""
}

// Check fetches the latest tag once. On failure it returns the cached
// last-good value alongside the error.
func (u *UpdateChecker) Check(ctx context.Context) (string, error) {
	tag, err := u.fetch(ctx)
	u.mu.Lock()
	defer u.mu.Unlock()
	if err != nil {
		u.lastErr = err
		return u.latest, err
	}
	u.latest = tag
	u.lastErr = nil
	return tag, nil
}

func (u *UpdateChecker) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release endpoint: %s", resp.Status)
	}
	var body struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.TagName == "" {
		return "", fmt.Errorf("release endpoint: empty tag")
	}
	return body.TagName, nil
}

// Run polls until ctx is done.
func (u *UpdateChecker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := u.Check(ctx); err != nil {
			log.Debug().Err(err).Msg("update check failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
