package fetcher

import (
	"time"

	"github.com/gocolly/colly/v2"
)

// HTTPFetcher implements Fetcher with a plain HTTP GET for sites that
// serve their content without script rendering. It uses one fixed
// identity header set and a single attempt: failures on this path are
// terminal for the source this cycle, so there is no retry loop.
type HTTPFetcher struct {
	collector *colly.Collector
}

// NewHTTPFetcher creates an HTTPFetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// The watcher refetches the same source URLs every cycle, so the
	// collector must not refuse revisits.
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)

	return &HTTPFetcher{collector: c}
}

// Fetch retrieves the page body. waitSelector is ignored on this path;
// selector waits only make sense with a rendering browser.
func (hf *HTTPFetcher) Fetch(url, waitSelector string) (string, error) {
	// Clone per call so response callbacks never accumulate on the
	// shared collector.
	c := hf.collector.Clone()

	var html string
	var fetchErr error

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "ja,en-US;q=0.7,en;q=0.3")
	})
	c.OnResponse(func(r *colly.Response) {
		html = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(url); err != nil {
		fetchErr = err
	}
	c.Wait()

	if fetchErr != nil {
		return "", &FetchError{URL: url, Attempts: 1, Err: fetchErr}
	}
	return html, nil
}
