package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/veranemoloko/soundtrack-downloader/internal/metrics"
)

// DefaultMaxAttempts is the attempt budget used by Get.
const DefaultMaxAttempts = 3

// UserAgents is the identity pool rotated between retries.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Accept-Encoding is left to the transport so compressed bodies are decoded transparently.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	Timeout        time.Duration
	MaxAttempts    int
	BackoffBase    time.Duration
	RequestsPerSec float64
	Burst          int
	Client         *http.Client
	Logger         *slog.Logger
}

// Fetcher issues outbound GET requests carrying a shared, rotating browser identity.
// Network errors and 403 responses are retried with a jittered, increasing backoff.
type Fetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoffBase time.Duration
	logger      *slog.Logger
	id          *identity
}

// identity is the User-Agent shared by a Fetcher and its siblings.
type identity struct {
	mu        sync.Mutex
	userAgent string
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := &Fetcher{
		client:      client,
		limiter:     rate.NewLimiter(limit, burst),
		maxAttempts: maxAttempts,
		backoffBase: opts.BackoffBase,
		logger:      logger,
		id:          &identity{},
	}
	f.rotateIdentity()
	return f
}

// WithClient returns a Fetcher that sends requests through client but shares the
// identity, the rate limiter and the retry policy of f.
func (f *Fetcher) WithClient(client *http.Client) *Fetcher {
	sibling := *f
	sibling.client = client
	return &sibling
}

// UserAgent returns the identity currently attached to outbound requests.
func (f *Fetcher) UserAgent() string {
	f.id.mu.Lock()
	defer f.id.mu.Unlock()
	return f.id.userAgent
}

// rotateIdentity picks a new User-Agent for every subsequent request, including
// requests issued by other callers sharing this Fetcher.
func (f *Fetcher) rotateIdentity() {
	ua := UserAgents[rand.IntN(len(UserAgents))]
	f.id.mu.Lock()
	f.id.userAgent = ua
	f.id.mu.Unlock()
}

// Get fetches rawURL using the default attempt budget.
// The caller must close the body of the returned response.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	return f.GetWithAttempts(ctx, rawURL, f.maxAttempts)
}

// GetWithAttempts fetches rawURL, retrying network errors and 403 responses until
// maxAttempts is exhausted. Any other non-2xx status fails immediately.
func (f *Fetcher) GetWithAttempts(ctx context.Context, rawURL string, maxAttempts int) (*http.Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := f.backoff(attempt - 1)
			f.logger.Debug("retrying request", "url", rawURL, "attempt", attempt, "delay", delay, "error", lastErr)
			metrics.FetchRetries.Inc()
			if err := sleep(ctx, delay); err != nil {
				return nil, &Error{URL: rawURL, Attempts: attempt - 1, Err: err}
			}
			f.rotateIdentity()
		}

		metrics.FetchAttempts.Inc()
		resp, err := f.do(ctx, rawURL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &Error{URL: rawURL, Attempts: attempt, Err: err}
			}
			lastErr, lastStatus = err, 0
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		resp.Body.Close()
		statusErr := fmt.Errorf("unexpected status: %s", resp.Status)
		if resp.StatusCode != http.StatusForbidden {
			metrics.FetchFailures.Inc()
			return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode, Attempts: attempt, Err: statusErr}
		}
		lastErr, lastStatus = statusErr, resp.StatusCode
	}

	metrics.FetchFailures.Inc()
	f.logger.Warn("request failed", "url", rawURL, "attempts", maxAttempts, "error", lastErr)
	return nil, &Error{URL: rawURL, StatusCode: lastStatus, Attempts: maxAttempts, Err: lastErr}
}

// Open performs a single request with the shared identity plus extra headers and
// returns the response whatever its status. Used for byte-range passthrough.
func (f *Fetcher) Open(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	metrics.FetchAttempts.Inc()
	resp, err := f.do(ctx, rawURL, header)
	if err != nil {
		metrics.FetchFailures.Inc()
		return nil, &Error{URL: rawURL, Attempts: 1, Err: err}
	}
	return resp, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set("User-Agent", f.UserAgent())
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	return f.client.Do(req)
}

// backoff grows linearly with the retry number and adds up to one base unit of jitter.
func (f *Fetcher) backoff(retry int) time.Duration {
	if f.backoffBase <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int64N(int64(f.backoffBase)))
	return time.Duration(retry)*f.backoffBase + jitter
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
