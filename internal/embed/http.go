package embed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// retryBackoffs are the waits between attempts; len+1 attempts total.
var retryBackoffs = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

const maxRetryAfter = 30 * time.Second

// poster sends JSON to an embedding endpoint with rate limiting and
// retries on 429, 5xx and unreadable bodies.
type poster struct {
	name    string // backend name for error messages
	client  *http.Client
	limiter *rate.Limiter
	headers map[string]string
}

// post returns the body of the first 200 response. decode is applied to it
// so a truncated response can be retried like a transport error.
func (p *poster) post(ctx context.Context, url string, body []byte, decode func([]byte) error) error {
	var lastErr error
	for attempt := 0; attempt <= len(retryBackoffs); attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("embed: rate limiter wait failed: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("embed: failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range p.headers {
			req.Header.Set(k, v)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("embed: request cancelled: %w", ctx.Err())
			}
			return fmt.Errorf("embed: request failed: %w", err)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("embed: failed to read response: %w", err)
		}

		delay := time.Duration(0)
		switch {
		case resp.StatusCode == http.StatusOK:
			if err := decode(data); err != nil {
				lastErr = fmt.Errorf("embed: failed to parse %s response: %w", p.name, err)
			} else {
				return nil
			}
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("embed: %s returned status %d: %s", p.name, resp.StatusCode, string(data))
			if resp.StatusCode == http.StatusTooManyRequests {
				delay = retryAfter(resp.Header.Get("Retry-After"))
			}
		default:
			return fmt.Errorf("embed: %s returned status %d: %s", p.name, resp.StatusCode, string(data))
		}

		if attempt == len(retryBackoffs) {
			break
		}
		if delay == 0 {
			delay = retryBackoffs[attempt]
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("embed: request cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("embed: all retries exhausted: %w", lastErr)
}

// retryAfter parses a Retry-After seconds header, capped at maxRetryAfter.
func retryAfter(h string) time.Duration {
	seconds, err := strconv.Atoi(h)
	if err != nil || seconds <= 0 {
		return 0
	}
	return min(time.Duration(seconds)*time.Second, maxRetryAfter)
}
