package crawler

import (
	"context"
	"errors"
	"net/http/cookiejar"
	"strings"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// StaticFetcher fetches pages over plain HTTP with the Cloudflare
// bypass transport. It cannot execute JavaScript, so it only works
// while the target site serves review markup server-side; the browser
// fetcher is the default for a reason.
type StaticFetcher struct {
	client *resty.Client
}

func NewStaticFetcher() (*StaticFetcher, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", BrowserUserAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	return &StaticFetcher{client: client}, nil
}

func (s *StaticFetcher) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &FetchError{Kind: FailTimeout, URL: url, Err: err}
		}
		return "", &FetchError{Kind: FailNetwork, URL: url, Err: err}
	}

	body := resp.String()
	if resp.StatusCode() == 403 || resp.StatusCode() == 503 || looksLikeChallenge(body) {
		return "", &FetchError{Kind: FailBotChallenge, URL: url, Err: errors.New("challenge page served")}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 400 {
		return "", &FetchError{Kind: FailNetwork, URL: url, Err: errors.New(resp.Status())}
	}
	return body, nil
}

func (s *StaticFetcher) Close() error { return nil }

func looksLikeChallenge(body string) bool {
	return strings.Contains(body, challengeTitle) ||
		strings.Contains(body, "cf-challenge") ||
		strings.Contains(body, "Checking your browser")
}
