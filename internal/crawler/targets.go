package crawler

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"avvo-crawler/internal/logger"
	"avvo-crawler/pkg/models"
)

// ErrNoTargets means the input list had no usable URLs. The caller is
// expected to stop the run so the operator can populate the file.
var ErrNoTargets = errors.New("no usable targets in input list")

const sampleURLsFile = `# Add one URL per line
# Lines starting with # are ignored
# Optional: Add DAYS_BACK=365 to limit reviews to the last N days
# DAYS_BACK=365
https://www.avvo.com/attorneys/28204-nc-michael-demayo-1742166.html
`

// LoadTargets reads the newline-delimited target list at path. A
// DAYS_BACK=<n> directive (bare or inside a comment, case-insensitive,
// "none" to disable) applies to the targets listed after it. Malformed
// lines are logged and skipped, never fatal.
//
// If the file does not exist a sample is written in its place and
// ErrNoTargets is returned.
func LoadTargets(path string, log *logger.Logger) ([]models.Target, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if werr := os.WriteFile(path, []byte(sampleURLsFile), 0o644); werr != nil {
			return nil, fmt.Errorf("creating sample %s: %w", path, werr)
		}
		log.Warn("input list not found, sample created; add URLs and run again", "path", path)
		return nil, ErrNoTargets
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var targets []models.Target
	daysBack := 0

	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if n, ok, err := parseDaysBack(line); ok {
			if err != nil {
				log.Warn("invalid DAYS_BACK directive", "line", lineNum, "text", line)
				continue
			}
			daysBack = n
			log.Info("recency window set", "line", lineNum, "days_back", daysBack)
			continue
		}

		if strings.HasPrefix(line, "#") {
			continue
		}

		if err := validateTargetURL(line); err != nil {
			log.Warn("skipping invalid URL", "line", lineNum, "text", line, "reason", err)
			continue
		}

		targets = append(targets, models.Target{URL: line, DaysBack: daysBack})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	return targets, nil
}

// parseDaysBack recognizes "DAYS_BACK=365" and "# DAYS_BACK=365".
// ok reports whether the line is a directive at all.
func parseDaysBack(line string) (n int, ok bool, err error) {
	stripped := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	if !strings.HasPrefix(strings.ToUpper(stripped), "DAYS_BACK=") {
		return 0, false, nil
	}
	value := strings.TrimSpace(stripped[len("DAYS_BACK="):])
	if strings.EqualFold(value, "none") {
		return 0, true, nil
	}
	n, err = strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, true, fmt.Errorf("bad DAYS_BACK value %q", value)
	}
	return n, true, nil
}

func validateTargetURL(raw string) error {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return errors.New("missing http(s) scheme")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
