package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchMissingAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request should be made without an API key")
	}))
	defer server.Close()

	client := NewBraveClient("")
	client.BaseURL = server.URL

	_, err := client.Search(context.Background(), "query", 5)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestSearchDecodesResults(t *testing.T) {
	var gotToken, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Subscription-Token")
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"web":{"results":[
			{"title":"First","url":"https://example.com/1","description":"first snippet"},
			{"title":"Second","url":"https://example.com/2","description":"second snippet"}
		]}}`))
	}))
	defer server.Close()

	client := NewBraveClient("test-key")
	client.BaseURL = server.URL

	results, err := client.Search(context.Background(), "golang testing", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotToken != "test-key" {
		t.Errorf("subscription token = %q, want %q", gotToken, "test-key")
	}
	if gotQuery != "golang testing" {
		t.Errorf("query param = %q", gotQuery)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "First" || results[0].Link != "https://example.com/1" || results[0].Snippet != "first snippet" {
		t.Fatalf("unexpected first result %+v", results[0])
	}
}

func TestSearchClampsCount(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "1"},
		{-5, "1"},
		{1, "1"},
		{7, "7"},
		{10, "10"},
		{50, "10"},
	}

	var gotCount string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCount = r.URL.Query().Get("count")
		w.Write([]byte(`{"web":{"results":[]}}`))
	}))
	defer server.Close()

	client := NewBraveClient("test-key")
	client.BaseURL = server.URL

	for _, tc := range cases {
		if _, err := client.Search(context.Background(), "q", tc.in); err != nil {
			t.Fatalf("Search(count=%d): %v", tc.in, err)
		}
		if gotCount != tc.want {
			t.Errorf("count=%d sent as %q, want %q", tc.in, gotCount, tc.want)
		}
	}
}

func TestSearchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewBraveClient("test-key")
	client.BaseURL = server.URL

	if _, err := client.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
