package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// FetchResult is the terminal outcome of a fetch after retry exhaustion.
// Adapters receive it as a plain error; the engine keeps the detail.
type FetchResult struct {
	URL    string
	Status int
	Err    error
}

func (r *FetchResult) Error() string {
	if r.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", r.URL, r.Status, r.Err)
	}
	return fmt.Sprintf("fetch %s: %v", r.URL, r.Err)
}

func (r *FetchResult) Unwrap() error { return r.Err }

// FetchJSON fetches and unmarshals one URL with the engine's politeness and
// retry rules.
func (e *Engine) FetchJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	body, err := e.FetchBody(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// FetchBody fetches one URL. Each attempt is preceded by a jittered delay.
// A 429 costs one cooldown and does not consume a retry; 5xx and network
// errors burn retries against the adapter's backoff schedule. Non-retryable
// statuses fail immediately.
func (e *Engine) FetchBody(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	rl := e.adapter.RateLimit
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.sleep(e.jitterDelay())
		e.counters.Requests++

		body, status, err := e.doRequest(ctx, url, headers)
		switch {
		case err == nil && status == http.StatusOK:
			return body, nil

		case status == http.StatusTooManyRequests:
			e.counters.RateLimitHits++
			cooldown := rl.RateLimitCooldown
			if cooldown == 0 {
				cooldown = 60 * time.Second
			}
			slog.Warn("rate limited", "url", url, "cooldown", cooldown)
			e.sleep(cooldown)
			// Free retry: the counter stays put.
			continue

		case status >= 500 || status == 0:
			if attempt >= rl.MaxRetries {
				return nil, &FetchResult{URL: url, Status: status, Err: fmt.Errorf("retries exhausted after %d attempts: %w", attempt+1, orStatusErr(err, status))}
			}
			wait := backoffAt(rl.Backoff, attempt)
			slog.Warn("fetch retrying", "url", url, "status", status, "attempt", attempt+1, "backoff", wait)
			e.counters.Retries++
			attempt++
			e.sleep(wait)
			continue

		default:
			return nil, &FetchResult{URL: url, Status: status, Err: orStatusErr(err, status)}
		}
	}
}

func (e *Engine) doRequest(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	req.Header.Set("User-Agent", e.nextUserAgent())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (e *Engine) jitterDelay() time.Duration {
	rl := e.adapter.RateLimit
	if rl.MaxDelay <= rl.MinDelay {
		return rl.MinDelay
	}
	return rl.MinDelay + rand.N(rl.MaxDelay-rl.MinDelay)
}

func (e *Engine) nextUserAgent() string {
	uas := e.adapter.UserAgents
	if len(uas) == 0 {
		return "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"
	}
	ua := uas[e.uaIndex%len(uas)]
	e.uaIndex++
	return ua
}

func backoffAt(schedule []time.Duration, attempt int) time.Duration {
	if len(schedule) == 0 {
		return time.Duration(attempt+1) * 5 * time.Second
	}
	if attempt >= len(schedule) {
		return schedule[len(schedule)-1]
	}
	return schedule[attempt]
}

func orStatusErr(err error, status int) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("unexpected status %d", status)
}
