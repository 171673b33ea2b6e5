package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"avvo-crawler/internal/crawler"
	"avvo-crawler/internal/logger"
	"avvo-crawler/pkg/models"
)

// Sink persists one target's batch of records.
type Sink interface {
	Save(batch []models.Record) error
}

// SeenIndex rebuilds the dedup key set for an attorney from the
// durable output, so re-runs stay idempotent across process restarts.
type SeenIndex interface {
	SeenKeys(attorneyID string) (map[string]bool, error)
}

// Snapshotter persists raw pages for offline reprocessing.
type Snapshotter interface {
	Write(targetID string, index int, html string) error
}

// Config holds the engine's fetch and pagination settings.
type Config struct {
	MaxPages       int
	Retries        int
	InitialBackoff time.Duration
	RespectRobots  bool
}

// TargetResult records how one target fared.
type TargetResult struct {
	URL      string
	Pages    int
	Records  int
	Failure  crawler.FailureKind
	Err      error
	writeErr error
}

// Completed reports whether the target finished without a fetch
// failure cutting pagination short.
func (r TargetResult) Completed() bool { return r.Err == nil }

// Summary is the per-run accounting surfaced to the operator.
type Summary struct {
	Attempted int
	Completed int
	Partial   int
	Records   int
	Results   []TargetResult
}

// Engine drives the fetch → parse → normalize → sink pipeline over a
// list of targets. Targets run sequentially: the target site penalizes
// concurrent automated sessions from one origin.
type Engine struct {
	cfg       Config
	fetcher   crawler.PageFetcher
	domains   *crawler.DomainManager
	index     SeenIndex
	sinks     []Sink
	snapshots Snapshotter
	log       *logger.Logger
}

func New(
	cfg Config,
	fetcher crawler.PageFetcher,
	domains *crawler.DomainManager,
	index SeenIndex,
	sinks []Sink,
	snapshots Snapshotter,
	log *logger.Logger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		fetcher:   fetcher,
		domains:   domains,
		index:     index,
		sinks:     sinks,
		snapshots: snapshots,
		log:       log,
	}
}

// Run processes the targets in order. A cancelled context stops the
// run between targets: the in-flight target is always flushed first.
// The returned error is non-nil only for sink write failures, which
// abort the run since silent data loss is unacceptable.
func (e *Engine) Run(ctx context.Context, targets []models.Target) (Summary, error) {
	var summary Summary
	norm := crawler.NewNormalizer(time.Now())

	for i, target := range targets {
		select {
		case <-ctx.Done():
			e.log.Warn("stop requested, halting before next target", "remaining", len(targets)-i)
			return summary, nil
		default:
		}

		e.log.Info("processing target", "url", target.URL, "days_back", target.DaysBack)
		res := e.runTarget(ctx, target, norm)

		summary.Attempted++
		summary.Results = append(summary.Results, res)

		// A batch the sink could not persist is not counted as written.
		if res.writeErr != nil {
			summary.Partial++
			return summary, fmt.Errorf("output sink failure: %w", res.writeErr)
		}

		summary.Records += res.Records
		if res.Completed() {
			summary.Completed++
		} else {
			summary.Partial++
			e.log.Warn("target incomplete", "url", target.URL, "kind", res.Failure, "error", res.Err)
		}
	}

	return summary, nil
}

func (e *Engine) runTarget(ctx context.Context, target models.Target, norm *crawler.Normalizer) TargetResult {
	res := TargetResult{URL: target.URL}

	if e.cfg.RespectRobots && !e.domains.IsAllowed(target.URL) {
		res.Err = errors.New("disallowed by robots.txt")
		return res
	}

	targetID := crawler.TargetID(target.URL)
	log := e.log.With("target", targetID)

	var (
		batch   []models.Record
		profile models.Profile
		seen    map[string]bool
	)

	pageURL := target.URL
	for index := 1; index <= e.cfg.MaxPages; index++ {
		if err := e.domains.Wait(ctx, pageURL); err != nil {
			res.Err = err
			break
		}

		html, err := e.fetchWithRetry(ctx, pageURL, log)
		if err != nil {
			res.Err = err
			var fe *crawler.FetchError
			if errors.As(err, &fe) {
				res.Failure = fe.Kind
			}
			break
		}
		res.Pages++

		if e.snapshots != nil {
			if err := e.snapshots.Write(targetID, index, html); err != nil {
				log.Warn("snapshot write failed", "page", index, "error", err)
			}
		}

		if index == 1 {
			profile = crawler.ParseProfile(html, pageURL)
			seen, err = e.index.SeenKeys(profile.AttorneyID)
			if err != nil {
				res.writeErr = err
				break
			}
			log.Info("profile parsed", "attorney", profile.Name, "id", profile.AttorneyID)
		}

		raws, err := crawler.ParseReviews(html)
		if err != nil {
			// A mangled page counts as zero reviews, never as a run
			// failure.
			log.Warn("parse anomaly, treating page as empty", "page", index, "error", err)
			raws = nil
		}
		if len(raws) == 0 && index > 1 {
			log.Debug("empty page, pagination exhausted", "page", index)
			break
		}

		records, sawOld := norm.Normalize(raws, profile, target, index, seen)
		batch = append(batch, records...)
		if sawOld {
			log.Info("review older than window found, stopping pagination", "page", index)
			break
		}

		next, err := crawler.NextPageURL(html, pageURL, index)
		if errors.Is(err, crawler.ErrNoNextPage) {
			if len(raws) == 0 {
				break
			}
			// No visible controls but the page had reviews: probe the
			// next ?page=N; an empty result terminates above.
			next = crawler.ProbePageURL(target.URL, index+1)
		} else if err != nil {
			log.Warn("pagination discovery failed", "page", index, "error", err)
			break
		}
		pageURL = next
	}

	res.Records = len(batch)
	for _, sink := range e.sinks {
		if err := sink.Save(batch); err != nil {
			res.writeErr = err
			return res
		}
	}
	log.Info("target flushed", "pages", res.Pages, "records", res.Records)
	return res
}

// fetchWithRetry retries retryable fetch failures with exponential
// backoff and jitter, up to the configured attempt budget.
func (e *Engine) fetchWithRetry(ctx context.Context, url string, log *logger.Logger) (string, error) {
	attempts := e.cfg.Retries
	if attempts < 1 {
		attempts = 1
	}

	backoff := e.cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		html, err := e.fetcher.Fetch(ctx, url)
		if err == nil {
			return html, nil
		}
		lastErr = err

		var fe *crawler.FetchError
		if !errors.As(err, &fe) || !fe.Retryable() || attempt == attempts {
			return "", err
		}

		delay := backoff + time.Duration(rand.Int63n(int64(backoff)/2+1))
		log.Warn("fetch failed, retrying", "url", url, "kind", fe.Kind, "attempt", attempt, "backoff", delay)
		select {
		case <-ctx.Done():
			return "", lastErr
		case <-time.After(delay):
		}
		backoff *= 2
	}
	return "", lastErr
}
