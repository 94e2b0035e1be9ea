package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func initSearchTest(t *testing.T, handler http.HandlerFunc, timeout time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	Init(Config{
		SearchURL:     srv.URL,
		SearchTimeout: timeout,
		SearchRPS:     1000, // no throttling in tests
		HTTPClient:    srv.Client(),
	})
}

func TestSearchWeb(t *testing.T) {
	var gotQuery, gotDepth string
	initSearchTest(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotDepth = r.URL.Query().Get("depth")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"title": "Acme Corp", "url": "https://acme.example", "content": "Rocket maker", "score": 0.9},
			{"title": "Acme News", "url": "https://news.example", "content": "Funding round", "score": 0.7},
			{"title": "Acme Jobs", "url": "https://jobs.example", "content": "Openings", "score": 0.5}
		]}`))
	}, 5*time.Second)

	results, err := SearchWeb(context.Background(), "Acme company culture", SearchOptions{
		MaxResults:  2,
		SearchDepth: "advanced",
	})
	if err != nil {
		t.Fatalf("SearchWeb error: %v", err)
	}
	if gotQuery != "Acme company culture" {
		t.Errorf("query not forwarded, got %q", gotQuery)
	}
	if gotDepth != "advanced" {
		t.Errorf("depth not forwarded, got %q", gotDepth)
	}
	if len(results) != 2 {
		t.Fatalf("max results not applied, got %d", len(results))
	}
	if results[0].Title != "Acme Corp" || results[0].Score != 0.9 {
		t.Errorf("unexpected first result %+v", results[0])
	}
}

func TestSearchWebTimeout(t *testing.T) {
	initSearchTest(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	_, err := SearchWeb(context.Background(), "slow query", SearchOptions{})
	if !errors.Is(err, ErrSearchTimeout) {
		t.Fatalf("want ErrSearchTimeout, got %v", err)
	}
}

func TestSearchWebNotConfigured(t *testing.T) {
	Init(Config{})
	if _, err := SearchWeb(context.Background(), "anything", SearchOptions{}); err == nil {
		t.Fatal("missing endpoint must be an error")
	}
}
