// Package sources contains HTTP clients for the third-party risk signals:
// RugCheck reports, DexScreener token pairs and GoPlus token security.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"solana-sniper/internal/errkind"
)

// DefaultTimeout bounds one source request.
const DefaultTimeout = 5 * time.Second

// maxBody caps how much of a response body is read.
const maxBody = 4 << 20

// client is the shared HTTP plumbing of every source: a minimum spacing
// between calls and errkind classification of failures.
type client struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func newClient(name, baseURL string, spacing, timeout time.Duration, hc *http.Client) client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if spacing > 0 {
		limit = rate.Every(spacing)
	}
	return client{
		name:    name,
		baseURL: baseURL,
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// getJSON waits out the spacing, issues GET url and decodes the body into out.
func (c *client) getJSON(ctx context.Context, url string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errkind.New(errkind.Fatal, c.name, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// Timeouts, refused connections and DNS failures are all outages.
		return errkind.New(errkind.Unavailable, c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return errkind.New(errkind.Unavailable, c.name, fmt.Errorf("read body: %w", err))
	}
	if err := errkind.FromStatus(c.name, resp.StatusCode, truncate(body)); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errkind.New(errkind.Fatal, c.name, fmt.Errorf("decode: %w", err))
	}
	return nil
}

func truncate(b []byte) string {
	const n = 256
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
