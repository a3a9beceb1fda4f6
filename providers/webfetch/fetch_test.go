package webfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchExtractsHTMLText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Example</title><script>var x=1;</script></head><body><h1>Hello</h1><p>World</p></body></html>`))
	}))
	defer srv.Close()

	f := New(5*time.Second, 0, "")
	f.HTTPClient = srv.Client()
	got, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "World") {
		t.Fatalf("content mismatch: got %q", got)
	}
	if strings.Contains(got, "var x=1") {
		t.Fatalf("script content should be dropped: got %q", got)
	}
}

func TestFetchPlainBodyPassesThrough(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("just some text"))
	}))
	defer srv.Close()

	f := New(5*time.Second, 0, "")
	f.HTTPClient = srv.Client()
	got, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got != "just some text" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestFetchNon2xxFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(5*time.Second, 0, "")
	f.HTTPClient = srv.Client()
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("Fetch() error = nil, want http error")
	}
	if !strings.Contains(err.Error(), "http 404") {
		t.Fatalf("error mismatch: got %v", err)
	}
}

func TestFetchRejectsUnsupportedScheme(t *testing.T) {
	t.Parallel()

	f := New(time.Second, 0, "")
	if _, err := f.Fetch(context.Background(), "ftp://example.com/file"); err == nil {
		t.Fatal("Fetch() error = nil, want scheme error")
	}
	if _, err := f.Fetch(context.Background(), ""); err == nil {
		t.Fatal("Fetch() error = nil, want missing url error")
	}
}

func TestFetchCapsBodySize(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	f := New(5*time.Second, 10, "")
	f.HTTPClient = srv.Client()
	got, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("length mismatch: got %d want 10", len(got))
	}
}
