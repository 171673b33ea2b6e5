package models

import (
	"fmt"
	"strings"
	"time"
)

// Target is one profile URL to scrape. DaysBack limits how far back
// reviews are collected; 0 means no recency filter.
type Target struct {
	URL      string
	DaysBack int
}

// Cutoff returns the oldest acceptable review date relative to now.
// The second value is false when the target has no recency filter.
func (t Target) Cutoff(now time.Time) (time.Time, bool) {
	if t.DaysBack <= 0 {
		return time.Time{}, false
	}
	return now.AddDate(0, 0, -t.DaysBack), true
}

// RawPage is the rendered HTML of one pagination page for a target.
type RawPage struct {
	Index int
	HTML  string
}

// RawReview holds the extracted-but-unvalidated fields of a single
// review block. Empty strings mean the field was absent on the page.
type RawReview struct {
	Reviewer         string
	DateText         string
	RatingText       string
	Title            string
	Body             string
	ReviewType       string
	ResponseName     string
	ResponseDateText string
	ResponseText     string
}

// Profile is the per-target metadata extracted from the first page.
type Profile struct {
	AttorneyID   string
	Name         string
	ZipCode      string
	StateCode    string
	ProfileID    string
	CanonicalURL string
}

// Record is a normalized review ready for the sink. Rating 0 means the
// page carried no star rating; DateKnown false means the date text could
// not be parsed (such records bypass the recency filter).
type Record struct {
	AttorneyID   string
	AttorneyName string
	Reviewer     string
	Rating       int
	Date         time.Time
	DateKnown    bool
	Title        string
	Text         string
	ReviewType   string
	ResponseName string
	ResponseDate string
	ResponseText string
	SourceURL    string
	PageIndex    int
	ScrapedAt    time.Time
}

// Key is the identity used for deduplication across runs.
func (r Record) Key() string {
	return strings.Join([]string{r.AttorneyID, r.Reviewer, r.DateString(), r.RatingString()}, "|")
}

// DateString renders the review date for output, empty when unknown.
func (r Record) DateString() string {
	if !r.DateKnown {
		return ""
	}
	return r.Date.Format("2006-01-02")
}

// RatingString renders the star rating for output, with an explicit
// marker for reviews that carried no rating.
func (r Record) RatingString() string {
	if r.Rating == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d", r.Rating)
}
