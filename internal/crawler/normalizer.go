package crawler

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"avvo-crawler/pkg/models"
)

// reviewDateLayouts covers the date spellings seen on review headers.
var reviewDateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"January 2,2006",
	"2006-01-02",
}

var relativeDateRe = regexp.MustCompile(`(?i)^(a|an|\d+)\s+(day|week|month|year)s?\s+ago$`)

// Normalizer turns raw extracted reviews into typed, filtered,
// deduplicated records. All temporal decisions are made against the
// run time captured at construction, so a run is internally consistent.
type Normalizer struct {
	now time.Time
}

func NewNormalizer(now time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize converts one page of raw reviews into new in-window
// records, updating seen with their identity keys. sawOld reports that
// a dated review fell outside the target's recency window; the site
// lists reviews newest-first, so the caller should stop paginating.
func (n *Normalizer) Normalize(
	raws []models.RawReview,
	profile models.Profile,
	target models.Target,
	pageIndex int,
	seen map[string]bool,
) (records []models.Record, sawOld bool) {
	cutoff, hasCutoff := target.Cutoff(n.now)

	for _, raw := range raws {
		rec := models.Record{
			AttorneyID:   profile.AttorneyID,
			AttorneyName: profile.Name,
			Reviewer:     raw.Reviewer,
			Title:        raw.Title,
			Text:         raw.Body,
			ReviewType:   raw.ReviewType,
			ResponseName: raw.ResponseName,
			ResponseText: raw.ResponseText,
			SourceURL:    target.URL,
			PageIndex:    pageIndex,
			ScrapedAt:    n.now,
		}

		rec.Rating = parseRating(raw.RatingText)
		rec.Date, rec.DateKnown = ParseReviewDate(raw.DateText, n.now)
		if d, ok := ParseReviewDate(raw.ResponseDateText, n.now); ok {
			rec.ResponseDate = d.Format("2006-01-02")
		}

		// Unknown dates are never filtered; guessing would silently
		// lose data on format drift.
		if hasCutoff && rec.DateKnown && rec.Date.Before(cutoff) {
			return records, true
		}

		key := rec.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		records = append(records, rec)
	}

	return records, false
}

// ParseReviewDate parses absolute and relative ("3 weeks ago") date
// phrasing. ok is false when the text fits no known form.
func ParseReviewDate(text string, now time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	for _, layout := range reviewDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}

	if strings.EqualFold(text, "today") {
		return now, true
	}
	if strings.EqualFold(text, "yesterday") {
		return now.AddDate(0, 0, -1), true
	}

	if m := relativeDateRe.FindStringSubmatch(text); m != nil {
		count := 1
		if q := strings.ToLower(m[1]); q != "a" && q != "an" {
			count, _ = strconv.Atoi(m[1])
		}
		switch strings.ToLower(m[2]) {
		case "day":
			return now.AddDate(0, 0, -count), true
		case "week":
			return now.AddDate(0, 0, -7*count), true
		case "month":
			return now.AddDate(0, -count, 0), true
		case "year":
			return now.AddDate(-count, 0, 0), true
		}
	}

	return time.Time{}, false
}

// parseRating returns a star count in 1..5, or 0 for unknown.
func parseRating(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > 5 {
		return 0
	}
	return n
}
