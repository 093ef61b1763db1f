package fetcher

import "fmt"

// Fetcher retrieves rendered HTML for a single URL. waitSelector is an
// optional CSS selector the implementation may wait for before
// capturing the document; implementations that cannot honor it ignore
// it.
type Fetcher interface {
	Fetch(url string, waitSelector string) (string, error)
}

// FetchError reports that a URL could not be fetched after all
// attempts. Callers treat it as "no data from this source this cycle",
// never as a fatal process error.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
