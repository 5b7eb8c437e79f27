package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/checkpoint"
	"github.com/MGMAppDev/soccerview/internal/pkg/config"
	"github.com/MGMAppDev/soccerview/internal/scraper/adapters"
)

func fetchEngine(t *testing.T, a *adapters.Adapter) *Engine {
	t.Helper()
	cps, err := checkpoint.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	e := New(a, &fakeEngineStore{}, cps, nil, config.ScraperConfig{
		TimeoutMinutes: 50,
		BatchSize:      100,
		RequestTimeout: 5 * time.Second,
	})
	e.sleep = func(time.Duration) {}
	return e
}

func TestFetchBodyRateLimitFreeRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	a := &adapters.Adapter{ID: "t", RateLimit: adapters.RateLimit{MaxRetries: 3, RateLimitCooldown: time.Millisecond}}
	e := fetchEngine(t, a)

	body, err := e.FetchBody(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
	if e.counters.RateLimitHits != 1 {
		t.Errorf("RateLimitHits = %d, want 1", e.counters.RateLimitHits)
	}
	// The 429 costs a cooldown, not a retry.
	if e.counters.Retries != 0 {
		t.Errorf("Retries = %d, want 0", e.counters.Retries)
	}
}

func TestFetchBodyServerErrorBackoffExhaustion(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := &adapters.Adapter{ID: "t", RateLimit: adapters.RateLimit{
		MaxRetries: 2,
		Backoff:    []time.Duration{time.Millisecond, time.Millisecond},
	}}
	e := fetchEngine(t, a)

	_, err := e.FetchBody(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("want error after retry exhaustion")
	}
	var fr *FetchResult
	if !errors.As(err, &fr) {
		t.Fatalf("error type = %T, want *FetchResult", err)
	}
	if fr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d", fr.Status)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
	if e.counters.Retries != 2 {
		t.Errorf("Retries = %d, want 2", e.counters.Retries)
	}
}

func TestFetchBodyClientErrorNoRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := &adapters.Adapter{ID: "t", RateLimit: adapters.RateLimit{MaxRetries: 3}}
	e := fetchEngine(t, a)

	if _, err := e.FetchBody(context.Background(), srv.URL, nil); err == nil {
		t.Fatal("want error on 404")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls)
	}
}

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Spring Shootout"}`))
	}))
	defer srv.Close()

	a := &adapters.Adapter{ID: "t"}
	e := fetchEngine(t, a)

	var out struct {
		Name string `json:"name"`
	}
	if err := e.FetchJSON(context.Background(), srv.URL, nil, &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "Spring Shootout" {
		t.Errorf("Name = %q", out.Name)
	}
}

func TestUserAgentRotation(t *testing.T) {
	a := &adapters.Adapter{ID: "t", UserAgents: []string{"ua-one", "ua-two"}}
	e := fetchEngine(t, a)

	got := []string{e.nextUserAgent(), e.nextUserAgent(), e.nextUserAgent()}
	want := []string{"ua-one", "ua-two", "ua-one"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rotation[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBackoffAt(t *testing.T) {
	schedule := []time.Duration{time.Second, 5 * time.Second}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 5 * time.Second},
		{5, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffAt(schedule, tt.attempt); got != tt.want {
			t.Errorf("backoffAt(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
