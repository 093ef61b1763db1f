package fetcher

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPFetcherSuccess(t *testing.T) {
	const body = "<html><body>ポケモンカード 抽選受付中</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	hf := NewHTTPFetcher(5 * time.Second)
	html, err := hf.Fetch(srv.URL, "")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if html != body {
		t.Errorf("Fetch() = %q, want %q", html, body)
	}
}

func TestHTTPFetcherNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	hf := NewHTTPFetcher(5 * time.Second)
	_, err := hf.Fetch(srv.URL, "")
	if err == nil {
		t.Fatal("Fetch() should fail on 404")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error = %T, want *FetchError", err)
	}
	if fe.Attempts != 1 {
		t.Errorf("FetchError.Attempts = %d, want 1 (no retry on the HTTP path)", fe.Attempts)
	}
}

func TestHTTPFetcherSendsIdentityHeaders(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	hf := NewHTTPFetcher(5 * time.Second)
	if _, err := hf.Fetch(srv.URL, ""); err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if gotUA == "" || gotLang == "" {
		t.Errorf("identity headers missing: User-Agent=%q Accept-Language=%q", gotUA, gotLang)
	}
}

// Every watch cycle fetches the same fixed source URL again, so the
// fetcher must not balk at revisits.
func TestHTTPFetcherRefetchesSameURL(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	hf := NewHTTPFetcher(5 * time.Second)
	for i := 0; i < 3; i++ {
		if _, err := hf.Fetch(srv.URL, ""); err != nil {
			t.Fatalf("Fetch() call %d to the same URL failed: %v", i+1, err)
		}
	}
	if calls != 3 {
		t.Errorf("server saw %d requests, want 3", calls)
	}
}
