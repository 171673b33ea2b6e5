package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"avvo-crawler/pkg/models"
)

var snapshotNameRe = regexp.MustCompile(`^(.+)_page-(\d+)\.html$`)

// SnapshotStore persists fetched pages as HTML files named by
// (target id, page index), for reprocessing with cmd/convert.
type SnapshotStore struct {
	dir string
}

func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	return &SnapshotStore{dir: dir}, nil
}

// Write persists one page's HTML under a deterministic name.
func (s *SnapshotStore) Write(targetID string, index int, html string) error {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_page-%d.html", targetID, index))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return nil
}

// TargetIDs lists the target identifiers that have snapshots, sorted.
func (s *SnapshotStore) TargetIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot dir: %w", err)
	}

	set := make(map[string]bool)
	for _, e := range entries {
		if m := snapshotNameRe.FindStringSubmatch(e.Name()); m != nil {
			set[m[1]] = true
		}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Pages loads one target's snapshots in pagination order.
func (s *SnapshotStore) Pages(targetID string) ([]models.RawPage, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot dir: %w", err)
	}

	var pages []models.RawPage
	for _, e := range entries {
		m := snapshotNameRe.FindStringSubmatch(e.Name())
		if m == nil || m[1] != targetID {
			continue
		}
		index, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		html, err := readHTMLFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		pages = append(pages, models.RawPage{Index: index, HTML: html})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })
	return pages, nil
}

// readHTMLFile reads a snapshot and decodes it to UTF-8; snapshots
// captured by other tooling are not guaranteed to be UTF-8 already.
func readHTMLFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	enc, _, _ := charset.DetermineEncoding(data, "text/html")
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("decoding snapshot %s: %w", path, err)
		}
		decoded = data
	}
	return string(bytes.ToValidUTF8(decoded, []byte(" "))), nil
}
