package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"shc-verifier/internal/platform/config"
)

var refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shc_directory_refresh_total",
	Help: "Trust directory refresh attempts by result",
}, []string{"result"})

// maxSnapshotBytes bounds the snapshot download; the VCI snapshot is a few
// megabytes.
const maxSnapshotBytes = 32 << 20

// Fetcher retrieves raw snapshot bytes. The default implementation does an
// HTTP GET; tests substitute canned bytes.
type Fetcher func(ctx context.Context) ([]byte, error)

// Cache stores the last known-good snapshot bytes so verification survives a
// corrupt or unreachable upstream.
type Cache interface {
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, data []byte) error
}

// Provider maintains the current trust-directory snapshot. Refresh swaps an
// atomic pointer; snapshots already handed out stay valid for the requests
// holding them.
type Provider struct {
	fetch    Fetcher
	interval time.Duration
	poll     time.Duration
	cache    Cache
	logger   *slog.Logger
	clock    func() time.Time

	current atomic.Pointer[Directory]

	mu          sync.Mutex // serializes refreshes
	lastSuccess time.Time
}

// ProviderOption configures the Provider.
type ProviderOption func(*Provider)

// WithCache sets the last-known-good snapshot cache.
func WithCache(cache Cache) ProviderOption {
	return func(p *Provider) {
		p.cache = cache
	}
}

// WithFetcher overrides the snapshot fetcher.
func WithFetcher(fetch Fetcher) ProviderOption {
	return func(p *Provider) {
		p.fetch = fetch
	}
}

// WithProviderClock overrides the time source for refresh gating in tests.
func WithProviderClock(clock func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.clock = clock
	}
}

// NewProvider builds a Provider around the configured snapshot URL. No
// snapshot is loaded until the first Refresh.
func NewProvider(cfg config.Directory, logger *slog.Logger, opts ...ProviderOption) *Provider {
	p := &Provider{
		interval: cfg.RefreshInterval,
		poll:     cfg.PollInterval,
		logger:   logger,
		clock:    time.Now,
		fetch:    httpFetcher(cfg.URL, cfg.FetchTimeout),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func httpFetcher(url string, timeout time.Duration) Fetcher {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build snapshot request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch snapshot: %w", err)
		}
		defer resp.Body.Close() //nolint:errcheck // read-only body
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch snapshot: unexpected status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
		if err != nil {
			return nil, fmt.Errorf("read snapshot body: %w", err)
		}
		return data, nil
	}
}

// Snapshot returns the current directory, or nil when no refresh has
// succeeded yet. Callers hold the returned snapshot for the duration of one
// verification.
func (p *Provider) Snapshot() *Directory {
	return p.current.Load()
}

// Health reports whether a snapshot is installed. Verification fails closed
// without one, so readiness depends on it.
func (p *Provider) Health(context.Context) error {
	if p.current.Load() == nil {
		return errors.New("no trust directory snapshot installed")
	}
	return nil
}

// Refresh fetches and installs a new snapshot. It is a no-op while the
// current snapshot is younger than the refresh interval. On upstream
// failure it falls back to the cached copy; if that also fails, the previous
// in-memory snapshot keeps serving.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current.Load() != nil && p.clock().Sub(p.lastSuccess) < p.interval {
		return nil
	}

	data, err := p.fetch(ctx)
	if err == nil {
		var dir *Directory
		if dir, err = Parse(data); err == nil {
			p.install(dir)
			refreshTotal.WithLabelValues("ok").Inc()
			p.logger.Info("trust directory refreshed", "issuers", dir.Issuers())
			if p.cache != nil {
				if cerr := p.cache.Set(ctx, data); cerr != nil {
					p.logger.Warn("caching trust directory failed", "error", cerr)
				}
			}
			return nil
		}
	}

	if p.cache != nil {
		if cached, cerr := p.cache.Get(ctx); cerr == nil {
			if dir, perr := Parse(cached); perr == nil {
				p.install(dir)
				refreshTotal.WithLabelValues("cache_fallback").Inc()
				p.logger.Warn("serving trust directory from cache", "error", err)
				return nil
			}
		}
	}

	refreshTotal.WithLabelValues("error").Inc()
	return fmt.Errorf("refresh trust directory: %w", err)
}

func (p *Provider) install(dir *Directory) {
	p.current.Store(dir)
	p.lastSuccess = p.clock()
}

// Run refreshes the directory on the poll interval until ctx is canceled.
// Refresh itself gates on the configured refresh interval, so polling more
// often than the upstream publishes is harmless.
func (p *Provider) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.logger.Error("trust directory refresh failed", "error", err)
			}
		}
	}
}
