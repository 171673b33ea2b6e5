package crawler

import (
	"context"
	"fmt"
)

// FailureKind classifies a fetch failure for retry decisions and the
// run summary.
type FailureKind string

const (
	FailNetwork      FailureKind = "network"
	FailBotChallenge FailureKind = "bot-challenge"
	FailTimeout      FailureKind = "timeout"
	FailRender       FailureKind = "render-error"
)

// FetchError is a classified failure fetching one page.
type FetchError struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether retrying the same page can help.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FailNetwork, FailBotChallenge, FailTimeout:
		return true
	}
	return false
}

// PageFetcher retrieves the rendered HTML of one URL. Implementations
// must classify failures as *FetchError so the engine can decide
// whether to retry. Pagination discovery is done on the returned HTML
// (see NextPageURL), keeping the engine testable without a browser.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}
