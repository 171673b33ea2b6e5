package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"avvo-crawler/pkg/models"
)

// csvHeader is the fixed column set; it must stay stable so repeated
// runs against the same output path remain append-compatible.
var csvHeader = []string{
	"attorney_id",
	"attorney_name",
	"reviewer_name",
	"review_rating",
	"review_date",
	"review_title",
	"review_text",
	"review_type",
	"attorney_response_name",
	"attorney_response_date",
	"attorney_response_text",
	"source_url",
	"page_index",
	"scraped_at",
}

var flattenRe = regexp.MustCompile(`\s+`)

// CSVSink appends review records to a durable CSV table. Each Save is
// encoded in memory first and appended with a single write followed by
// a sync, so a crash mid-run never leaves a partial row behind.
type CSVSink struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewCSVSink opens (or creates) the output table at path. The header
// row is written only when the file is new or empty.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening output %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if _, err := f.Write(buf.Bytes()); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing header: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &CSVSink{path: path, file: f}, nil
}

// Save appends one target's batch of records.
func (s *CSVSink) Save(batch []models.Record) error {
	if len(batch) == 0 {
		return nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, rec := range batch {
		if err := w.Write(recordRow(rec)); err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("appending batch: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("syncing output: %w", err)
	}
	return nil
}

// SeenKeys rescans the output file and rebuilds the dedup index for
// one attorney. Doing this per target keeps re-runs correct even after
// a crash or restart.
func (s *CSVSink) SeenKeys(attorneyID string) (map[string]bool, error) {
	seen := make(map[string]bool)

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return seen, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return seen, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading output header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"attorney_id", "reviewer_name", "review_date", "review_rating"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("output file missing column %q", name)
		}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scanning output: %w", err)
		}
		if field(row, col["attorney_id"]) != attorneyID {
			continue
		}
		key := strings.Join([]string{
			attorneyID,
			field(row, col["reviewer_name"]),
			field(row, col["review_date"]),
			field(row, col["review_rating"]),
		}, "|")
		seen[key] = true
	}

	return seen, nil
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func recordRow(rec models.Record) []string {
	return []string{
		rec.AttorneyID,
		flatten(rec.AttorneyName),
		flatten(rec.Reviewer),
		rec.RatingString(),
		rec.DateString(),
		flatten(rec.Title),
		flatten(rec.Text),
		flatten(rec.ReviewType),
		flatten(rec.ResponseName),
		rec.ResponseDate,
		flatten(rec.ResponseText),
		rec.SourceURL,
		strconv.Itoa(rec.PageIndex),
		rec.ScrapedAt.Format("2006-01-02 15:04:05"),
	}
}

// flatten replaces newlines and runs of whitespace with single spaces
// so text fields never break CSV rows.
func flatten(s string) string {
	return strings.TrimSpace(flattenRe.ReplaceAllString(s, " "))
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
