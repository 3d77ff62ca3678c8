// Package pdf fetches agenda documents and extracts their text. Fetching
// recycles the HTTP client periodically and wraps each vendor host in a
// circuit breaker; extraction runs CPU-bound work in a bounded pool.
package pdf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Engagic/engagic/pkg/config"
	"github.com/sony/gobreaker"
)

// Fetcher downloads documents over HTTP. The underlying client is rebuilt
// every RecycleAfter requests; vendor CDNs are known to poison long-lived
// pooled connections, and recycling also bounds TLS session state.
type Fetcher struct {
	cfg *config.FetchConfig

	mu       sync.Mutex
	client   *http.Client
	requests int
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewFetcher creates a Fetcher from config.
func NewFetcher(cfg *config.FetchConfig) *Fetcher {
	return &Fetcher{
		cfg:      cfg,
		client:   newHTTPClient(cfg.RequestTimeout),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Fetch downloads one document, bounded by MaxBodyBytes. Repeated failures
// against the same host trip that host's breaker so a dead vendor portal
// fails fast instead of eating the whole job timeout per attachment.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	host, err := hostOf(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid document URL %q: %w", rawURL, err)
	}

	body, err := f.breakerFor(host).Execute(func() (any, error) {
		return f.fetch(ctx, rawURL)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("host %s is circuit-broken: %w", host, err)
		}
		return nil, err
	}
	return body.([]byte), nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.acquireClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("document %s exceeds %d byte cap", rawURL, f.cfg.MaxBodyBytes)
	}
	return body, nil
}

// acquireClient returns the shared client, rebuilding it every RecycleAfter
// requests.
func (f *Fetcher) acquireClient() *http.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests++
	if f.requests > f.cfg.RecycleAfter {
		f.client.CloseIdleConnections()
		f.client = newHTTPClient(f.cfg.RequestTimeout)
		f.requests = 1
		slog.Debug("Recycled HTTP client", "after_requests", f.cfg.RecycleAfter)
	}
	return f.client
}

func (f *Fetcher) breakerFor(host string) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := f.breakers[host]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    host,
		Timeout: 2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Fetch breaker state change", "host", name, "from", from.String(), "to", to.String())
		},
	})
	f.breakers[host] = cb
	return cb
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host")
	}
	return u.Host, nil
}

// Do issues a raw request on the shared client. Satisfies
// identity.HeadClient for metadata-enhanced attachment hashing.
func (f *Fetcher) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	return f.acquireClient().Do(req)
}
