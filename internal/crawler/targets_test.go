package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"avvo-crawler/internal/logger"
)

func writeTargetsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTargets(t *testing.T) {
	path := writeTargetsFile(t, `
# attorneys to scrape
https://www.avvo.com/attorneys/28204-nc-michael-demayo-1742166.html

# DAYS_BACK=365
https://www.avvo.com/attorneys/90210-ca-jane-roe-55.html
DAYS_BACK=none
https://www.avvo.com/attorneys/10001-ny-john-doe-77.html
not-a-url
`)

	targets, err := LoadTargets(path, logger.New("error"))
	require.NoError(t, err)
	require.Len(t, targets, 3)

	// Directives apply to the URLs listed after them.
	require.Equal(t, 0, targets[0].DaysBack)
	require.Equal(t, 365, targets[1].DaysBack)
	require.Equal(t, 0, targets[2].DaysBack)
}

func TestLoadTargets_OnlyCommentsAndJunk(t *testing.T) {
	path := writeTargetsFile(t, "# nothing here\nftp://wrong.scheme/x\n")

	_, err := LoadTargets(path, logger.New("error"))
	require.ErrorIs(t, err, ErrNoTargets)
}

func TestLoadTargets_MissingFileWritesSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")

	_, err := LoadTargets(path, logger.New("error"))
	require.ErrorIs(t, err, ErrNoTargets)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	require.Contains(t, string(data), "DAYS_BACK=365")
	require.Contains(t, string(data), "avvo.com/attorneys/")
}

func TestParseDaysBack(t *testing.T) {
	cases := []struct {
		line string
		n    int
		ok   bool
		bad  bool
	}{
		{"DAYS_BACK=30", 30, true, false},
		{"# DAYS_BACK=365", 365, true, false},
		{"days_back=7", 7, true, false},
		{"DAYS_BACK=none", 0, true, false},
		{"DAYS_BACK=-2", 0, true, true},
		{"DAYS_BACK=soon", 0, true, true},
		{"https://example.com", 0, false, false},
		{"# plain comment", 0, false, false},
	}

	for _, tc := range cases {
		n, ok, err := parseDaysBack(tc.line)
		require.Equal(t, tc.ok, ok, "line %q", tc.line)
		if tc.bad {
			require.Error(t, err, "line %q", tc.line)
			continue
		}
		require.NoError(t, err, "line %q", tc.line)
		require.Equal(t, tc.n, n, "line %q", tc.line)
	}
}
