package fetcher

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// session is one isolated browser session: navigate once, hand back the
// rendered document, then die. The indirection exists so retry and leak
// behavior can be tested without a browser.
type session interface {
	fetch(url, waitSelector string) (string, error)
	close() error
}

// RodFetcher implements Fetcher with a headless browser. Every Fetch
// attempt gets a fresh, isolated browser session under a randomized
// identity; sessions are never reused across targets so fingerprints
// cannot leak between sites.
type RodFetcher struct {
	maxRetries int
	timeout    time.Duration
	backoff    time.Duration

	newSession func(id identity, timeout time.Duration) (session, error)
}

// NewRodFetcher creates a RodFetcher. maxRetries is the number of
// retries after the initial attempt, timeout bounds each navigation and
// backoff is the base delay between attempts (the n-th wait is n times
// the base).
func NewRodFetcher(maxRetries int, timeout, backoff time.Duration) *RodFetcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &RodFetcher{
		maxRetries: maxRetries,
		timeout:    timeout,
		backoff:    backoff,
		newSession: newRodSession,
	}
}

// Fetch retrieves the fully rendered HTML for the URL, retrying with
// linearly increasing backoff. Exhausting all attempts returns a
// *FetchError; the browser session of every attempt is closed whether
// the attempt succeeded or not.
func (rf *RodFetcher) Fetch(url, waitSelector string) (string, error) {
	attempts := rf.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		html, err := rf.fetchOnce(url, waitSelector)
		if err == nil {
			return html, nil
		}
		lastErr = err
		log.Printf("Fetch attempt %d/%d for %s failed: %v\n", attempt, attempts, url, err)

		if attempt < attempts {
			time.Sleep(rf.backoff * time.Duration(attempt))
		}
	}

	return "", &FetchError{URL: url, Attempts: attempts, Err: lastErr}
}

func (rf *RodFetcher) fetchOnce(url, waitSelector string) (html string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during fetch: %v", r)
		}
	}()

	sess, err := rf.newSession(randomIdentity(), rf.timeout)
	if err != nil {
		return "", fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if cerr := sess.close(); cerr != nil {
			log.Printf("Warning: Failed to close browser session: %v\n", cerr)
		}
	}()

	return sess.fetch(url, waitSelector)
}

// rodSession drives one throwaway browser instance.
type rodSession struct {
	browser *rod.Browser
	id      identity
	timeout time.Duration
}

// newRodSession launches a fresh headless browser for a single fetch.
func newRodSession(id identity, timeout time.Duration) (session, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		NoSandbox(true).
		Leakless(false).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-breakpad").
		Set("disable-client-side-phishing-detection").
		Set("disable-default-apps").
		Set("disable-hang-monitor").
		Set("disable-popup-blocking").
		Set("disable-prompt-on-repost").
		Set("disable-sync").
		Set("mute-audio").
		Set("lang", "ja-JP")

	// Prefer a system Chrome/Chromium when available.
	chromePaths := []string{
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	}
	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			l = l.Bin(path)
			break
		}
	}

	browserURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &rodSession{browser: browser, id: id, timeout: timeout}, nil
}

func (s *rodSession) close() error {
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}

func (s *rodSession) fetch(url, waitSelector string) (string, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	// Apply the chosen identity and the stealth patches before
	// navigating; detection scripts run on page load, so patching
	// afterwards is useless.
	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      s.id.UserAgent,
		AcceptLanguage: s.id.AcceptLanguage,
	}).Call(page); err != nil {
		return "", fmt.Errorf("failed to set user agent: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.id.Width,
		Height:            s.id.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return "", fmt.Errorf("failed to set viewport: %w", err)
	}
	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{
		Source: stealthScript,
	}).Call(page); err != nil {
		return "", fmt.Errorf("failed to install stealth script: %w", err)
	}

	if err := page.Timeout(s.timeout).Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate: %w", err)
	}
	if err := page.Timeout(s.timeout).WaitLoad(); err != nil {
		return "", fmt.Errorf("failed to load page: %w", err)
	}

	// Network quiescence and the caller's selector are best effort: a
	// timeout here is non-fatal and extraction proceeds with whatever
	// rendered.
	if err := page.Timeout(10 * time.Second).WaitStable(500 * time.Millisecond); err != nil {
		log.Printf("Warning: Page did not stabilize within timeout, continuing anyway: %v\n", err)
	}
	if waitSelector != "" {
		if _, err := page.Timeout(10 * time.Second).Element(waitSelector); err != nil {
			log.Printf("Warning: Selector %q did not appear, continuing anyway: %v\n", waitSelector, err)
		}
	}

	s.humanScroll(page)

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

// humanScroll walks the page to the bottom in randomized steps with
// randomized pauses to trigger lazy-loaded content, then jumps back to
// the top and down once more. Scroll errors are ignored; they only cost
// lazy content, not the fetch.
func (s *rodSession) humanScroll(page *rod.Page) {
	height := s.pageHeight(page)
	if height <= 0 {
		return
	}

	for pos := 0; pos < height; {
		step := 300 + rand.Intn(400)
		pos += step
		page.Eval(`(y) => window.scrollBy(0, y)`, step)
		time.Sleep(time.Duration(100+rand.Intn(250)) * time.Millisecond)
	}

	page.Eval(`() => window.scrollTo(0, 0)`)
	time.Sleep(time.Duration(300+rand.Intn(300)) * time.Millisecond)
	page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	time.Sleep(time.Duration(300+rand.Intn(300)) * time.Millisecond)
}

func (s *rodSession) pageHeight(page *rod.Page) int {
	res, err := page.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}
