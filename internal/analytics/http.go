package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ppiankov/casestrength/internal/model"
	"github.com/ppiankov/casestrength/internal/util"
	"github.com/ppiankov/casestrength/internal/worker"
)

const maxAttempts = 3

// sleepFunc waits between retries, returning early when ctx is done (injectable for tests)
var sleepFunc = sleepContext

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// HTTPSink POSTs events as JSON to a collector endpoint
type HTTPSink struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *worker.Limiter
}

// NewHTTPSink creates a sink for cfg.Endpoint, rate limited per endpoint host
func NewHTTPSink(cfg model.AnalyticsConfig, limiter *worker.Limiter) (*HTTPSink, error) {
	if _, err := worker.HostKey(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("analytics endpoint: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPSink{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: util.NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
		limiter: limiter,
	}, nil
}

// Send delivers one event, retrying transient failures with exponential backoff
func (s *HTTPSink) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.WaitURL(ctx, s.endpoint); err != nil {
				return fmt.Errorf("rate limit: %w", err)
			}
		}

		retry, err := s.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}

		if attempt < maxAttempts-1 {
			if err := sleepFunc(ctx, time.Duration(1<<uint(attempt))*time.Second); err != nil {
				return fmt.Errorf("send event %s: %w (last attempt: %v)", event.EventID, err, lastErr)
			}
		}
	}

	return fmt.Errorf("send event %s: %w", event.EventID, lastErr)
}

// post makes one delivery attempt and reports whether a failure is worth retrying
func (s *HTTPSink) post(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "casestrength")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return isRetryableNetworkError(err), err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("collector returned %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("collector rejected event: %d", resp.StatusCode)
	}
}

func isRetryableNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
