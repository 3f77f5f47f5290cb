package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/config"
	"github.com/Sriram-PR/wiki-bot/pkg/metrics"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// Request kinds used as the metrics label
const (
	KindAPI   = "api"
	KindPage  = "page"
	KindImage = "image"
)

// Fetcher performs outbound HTTP for the bot. Text API calls go through FetchWithRetry;
// article markup and image downloads use the single-attempt Get.
type Fetcher struct {
	client  *http.Client
	cfg     *config.AppConfig
	limiter *RateLimiter // nil disables the per-host politeness delay
	log     *logrus.Entry
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(client *http.Client, cfg *config.AppConfig, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

// WithRateLimiter enables the per-host delay for API calls
func (f *Fetcher) WithRateLimiter(rl *RateLimiter) *Fetcher {
	f.limiter = rl
	return f
}

// GetOptions controls a single-attempt GET
type GetOptions struct {
	UserAgent string        // Empty = config default_user_agent
	Timeout   time.Duration // 0 = client timeout only
	MaxBytes  int64         // 0 = unbounded
	Kind      string        // Metrics label, defaults to KindPage
}

// Response is a fully read response body. A non-2xx status is not an error.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Oversize    bool // Body exceeded GetOptions.MaxBytes and was discarded
}

// OK reports whether the status is 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get issues exactly one GET request to rawURL and reads the whole body.
// Transport failures (dial, DNS, TLS, timeout, truncated body) wrap utils.ErrNetwork.
func (f *Fetcher) Get(ctx context.Context, rawURL string, opts GetOptions) (*Response, error) {
	kind := opts.Kind
	if kind == "" {
		kind = KindPage
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", utils.ErrRequestCreation, rawURL, err)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = f.cfg.DefaultUserAgent
	}
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		netErr := fmt.Errorf("%w: GET %s: %w", utils.ErrNetwork, rawURL, err)
		metrics.ObserveHTTP(kind, utils.CategorizeError(netErr), time.Since(start))
		return nil, netErr
	}
	defer resp.Body.Close()

	out := &Response{StatusCode: resp.StatusCode, ContentType: resp.Header.Get("Content-Type")}

	var reader io.Reader = resp.Body
	if opts.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, opts.MaxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		readErr := fmt.Errorf("%w: %w: %s: %w", utils.ErrNetwork, utils.ErrResponseBodyRead, rawURL, err)
		metrics.ObserveHTTP(kind, utils.CategorizeError(readErr), time.Since(start))
		return nil, readErr
	}
	if opts.MaxBytes > 0 && int64(len(body)) > opts.MaxBytes {
		out.Oversize = true
		body = nil
	}
	out.Body = body

	metrics.ObserveHTTP(kind, fmt.Sprintf("status_%d", resp.StatusCode), time.Since(start))
	f.log.WithFields(logrus.Fields{
		"url": rawURL, "status_code": resp.StatusCode, "bytes": len(body), "oversize": out.Oversize,
	}).Debug("GET complete")
	return out, nil
}

// GetJSON fetches rawURL with retries and decodes the JSON body into out
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", utils.ErrRequestCreation, rawURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.FetchWithRetry(req, ctx)
	if err != nil {
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding JSON from %s: %w", utils.ErrParsing, rawURL, err)
	}
	return nil
}

// FetchWithRetry performs an HTTP request associated with the provided context
// It implements a retry mechanism with exponential backoff and jitter for transient network errors and specific HTTP status codes (5xx, 429)
func (f *Fetcher) FetchWithRetry(req *http.Request, ctx context.Context) (*http.Response, error) {
	var lastErr error
	var currentResp *http.Response

	reqLog := f.log.WithField("url", req.URL.String())
	if req.Header.Get("User-Agent") == "" && f.cfg.DefaultUserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.DefaultUserAgent)
	}

	maxRetries := f.cfg.MaxRetries
	initialRetryDelay := f.cfg.InitialRetryDelay
	maxRetryDelay := f.cfg.MaxRetryDelay
	host := req.URL.Hostname()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			reqLog.Warnf("Context cancelled before attempt %d: %v", attempt, ctx.Err())
			if lastErr != nil {
				return nil, fmt.Errorf("context cancelled (%v) during retry backoff after error: %w", ctx.Err(), lastErr)
			}
			return nil, fmt.Errorf("context cancelled before first attempt: %w", ctx.Err())
		default:
		}

		// Backoff before retries only: initial * 2^(attempt-1), capped, +/- 10% jitter
		if attempt > 0 {
			backoff := float64(initialRetryDelay) * math.Pow(2, float64(attempt-1))
			delay := time.Duration(backoff)
			if delay <= 0 || delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			var jitter time.Duration
			if delay >= 5 {
				jitter = time.Duration(rand.Int63n(int64(delay)/5)) - (delay / 10)
			}
			finalDelay := delay + jitter
			if finalDelay < 0 {
				finalDelay = 0
			}

			reqLog.WithFields(logrus.Fields{"attempt": attempt, "max_retries": maxRetries, "delay": finalDelay}).Warn("Retrying request...")

			timer := time.NewTimer(finalDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				reqLog.Warnf("Context cancelled during retry sleep: %v", ctx.Err())
				if lastErr != nil {
					return nil, fmt.Errorf("context cancelled (%v) during retry delay after error: %w", ctx.Err(), lastErr)
				}
				return nil, fmt.Errorf("context cancelled during retry delay: %w", ctx.Err())
			}
		}

		if f.limiter != nil {
			f.limiter.ApplyDelay(ctx, host, f.cfg.DelayPerHost)
		}

		start := time.Now()
		currentResp, lastErr = f.client.Do(req.WithContext(ctx))
		if f.limiter != nil {
			f.limiter.UpdateLastRequestTime(host)
		}

		if lastErr != nil {
			if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					// Caller gave up; do not retry
					reqLog.Warnf("Context cancelled/timed out during HTTP request execution: %v", lastErr)
					return nil, lastErr
				}
			}
			lastErr = fmt.Errorf("%w: %w", utils.ErrNetwork, lastErr)
			metrics.ObserveHTTP(KindAPI, utils.CategorizeError(lastErr), time.Since(start))
			reqLog.WithField("attempt", attempt).Errorf("Network error: %v", lastErr)
			if currentResp != nil {
				io.Copy(io.Discard, currentResp.Body)
				currentResp.Body.Close()
			}
			continue
		}

		statusCode := currentResp.StatusCode
		metrics.ObserveHTTP(KindAPI, fmt.Sprintf("status_%d", statusCode), time.Since(start))
		resLog := reqLog.WithFields(logrus.Fields{"status_code": statusCode, "attempt": attempt})

		switch {
		case statusCode >= 200 && statusCode < 300:
			resLog.Debug("Successfully fetched")
			return currentResp, nil

		case statusCode >= 500:
			resLog.Warn("Server error, retrying...")
			lastErr = fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, statusCode, currentResp.Status)
			io.Copy(io.Discard, currentResp.Body)
			currentResp.Body.Close()
			continue

		case statusCode == http.StatusTooManyRequests:
			// MediaWiki answers 429 when the per-UA budget is exhausted
			resLog.Warn("Received 429 Too Many Requests, retrying...")
			lastErr = fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, currentResp.Status)
			io.Copy(io.Discard, currentResp.Body)
			currentResp.Body.Close()
			continue

		case statusCode >= 400 && statusCode < 500:
			// Caller MUST close currentResp.Body
			resLog.Warn("Client error (4xx), not retrying")
			return currentResp, fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, statusCode, currentResp.Status)

		default:
			// Caller MUST close currentResp.Body
			resLog.Warnf("Non-retryable/unexpected status: %d", statusCode)
			return currentResp, fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, statusCode, currentResp.Status)
		}
	}

	reqLog.Errorf("All %d fetch retries failed. Last error: %v", maxRetries+1, lastErr)
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
	}
	return nil, utils.ErrRetryFailed
}
