package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStaticFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`<html><body><h1 class="profile-name">Jane Roe</h1></body></html>`))
		case "/blocked":
			w.WriteHeader(http.StatusForbidden)
		case "/challenge":
			w.Write([]byte(`<html><head><title>Just a moment...</title></head><body></body></html>`))
		case "/slow":
			time.Sleep(2 * time.Second)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f, err := NewStaticFetcher()
	require.NoError(t, err)
	defer f.Close()

	ctx := context.Background()

	html, err := f.Fetch(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	require.Contains(t, html, "profile-name")

	var fe *FetchError
	_, err = f.Fetch(ctx, srv.URL+"/blocked")
	require.ErrorAs(t, err, &fe)
	require.Equal(t, FailBotChallenge, fe.Kind)
	require.True(t, fe.Retryable())

	// A 200 that serves the interstitial still counts as a challenge.
	_, err = f.Fetch(ctx, srv.URL+"/challenge")
	require.ErrorAs(t, err, &fe)
	require.Equal(t, FailBotChallenge, fe.Kind)

	_, err = f.Fetch(ctx, srv.URL+"/missing")
	require.ErrorAs(t, err, &fe)
	require.Equal(t, FailNetwork, fe.Kind)

	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(timeoutCtx, srv.URL+"/slow")
	require.ErrorAs(t, err, &fe)
	require.Equal(t, FailTimeout, fe.Kind)
}

func TestFetchErrorRetryable(t *testing.T) {
	base := errors.New("boom")
	require.True(t, (&FetchError{Kind: FailNetwork, Err: base}).Retryable())
	require.True(t, (&FetchError{Kind: FailBotChallenge, Err: base}).Retryable())
	require.True(t, (&FetchError{Kind: FailTimeout, Err: base}).Retryable())
	require.False(t, (&FetchError{Kind: FailRender, Err: base}).Retryable())
}
