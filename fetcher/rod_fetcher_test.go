package fetcher

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// accountingFactory hands out fake sessions and keeps a ledger of how
// many were opened and closed, so leak behavior is verifiable without a
// browser.
type accountingFactory struct {
	opened    int
	closed    int
	failOpen  bool
	responses []fakeResponse
}

type fakeResponse struct {
	html string
	err  error
}

type fakeSession struct {
	factory *accountingFactory
	resp    fakeResponse
}

func (f *accountingFactory) newSession(id identity, timeout time.Duration) (session, error) {
	if f.failOpen {
		return nil, errors.New("launch failed")
	}
	resp := fakeResponse{err: errors.New("no response configured")}
	if f.opened < len(f.responses) {
		resp = f.responses[f.opened]
	}
	f.opened++
	return &fakeSession{factory: f, resp: resp}, nil
}

func (s *fakeSession) fetch(url, waitSelector string) (string, error) {
	return s.resp.html, s.resp.err
}

func (s *fakeSession) close() error {
	s.factory.closed++
	return nil
}

func newTestFetcher(maxRetries int, factory *accountingFactory) *RodFetcher {
	return &RodFetcher{
		maxRetries: maxRetries,
		timeout:    time.Second,
		backoff:    time.Millisecond,
		newSession: factory.newSession,
	}
}

func TestFetchExhaustsRetriesAndLeaksNoSessions(t *testing.T) {
	httpErr := errors.New("server returned 404")
	factory := &accountingFactory{
		responses: []fakeResponse{{err: httpErr}, {err: httpErr}, {err: httpErr}, {err: httpErr}},
	}
	rf := newTestFetcher(3, factory)

	_, err := rf.Fetch("https://example.com/lottery", "")
	if err == nil {
		t.Fatal("Fetch() should fail when every attempt fails")
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error = %T, want *FetchError", err)
	}
	// Initial attempt plus three retries.
	if fe.Attempts != 4 {
		t.Errorf("FetchError.Attempts = %d, want 4", fe.Attempts)
	}
	if !errors.Is(err, httpErr) {
		t.Errorf("FetchError should wrap the last cause, got %v", err)
	}

	if factory.opened != 4 {
		t.Errorf("sessions opened = %d, want 4", factory.opened)
	}
	if factory.closed != factory.opened {
		t.Errorf("sessions closed = %d, opened = %d; leaked %d",
			factory.closed, factory.opened, factory.opened-factory.closed)
	}
}

func TestFetchSucceedsAfterRetry(t *testing.T) {
	factory := &accountingFactory{
		responses: []fakeResponse{
			{err: errors.New("navigation timeout")},
			{html: "<html><body>ok</body></html>"},
		},
	}
	rf := newTestFetcher(3, factory)

	html, err := rf.Fetch("https://example.com/lottery", ".item")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if html != "<html><body>ok</body></html>" {
		t.Errorf("Fetch() = %q, want the rendered document", html)
	}
	if factory.opened != 2 {
		t.Errorf("sessions opened = %d, want 2", factory.opened)
	}
	if factory.closed != 2 {
		t.Errorf("sessions closed = %d, want 2", factory.closed)
	}
}

func TestFetchFirstAttemptSuccessUsesOneSession(t *testing.T) {
	factory := &accountingFactory{responses: []fakeResponse{{html: "<html></html>"}}}
	rf := newTestFetcher(3, factory)

	if _, err := rf.Fetch("https://example.com", ""); err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if factory.opened != 1 || factory.closed != 1 {
		t.Errorf("sessions opened/closed = %d/%d, want 1/1", factory.opened, factory.closed)
	}
}

func TestFetchSessionLaunchFailure(t *testing.T) {
	factory := &accountingFactory{failOpen: true}
	rf := newTestFetcher(2, factory)

	_, err := rf.Fetch("https://example.com", "")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Fetch() error = %T, want *FetchError", err)
	}
	if fe.Attempts != 3 {
		t.Errorf("FetchError.Attempts = %d, want 3", fe.Attempts)
	}
	if factory.closed != 0 {
		t.Errorf("sessions closed = %d, want 0 (none were opened)", factory.closed)
	}
}

func TestFetchErrorMessage(t *testing.T) {
	fe := &FetchError{URL: "https://example.com", Attempts: 4, Err: fmt.Errorf("status 404")}
	want := "fetch https://example.com failed after 4 attempt(s): status 404"
	if fe.Error() != want {
		t.Errorf("Error() = %q, want %q", fe.Error(), want)
	}
}
