package crawler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"avvo-crawler/internal/logger"
	"avvo-crawler/pkg/models"
)

type stubIndex struct {
	seen  map[string]bool
	asked []string
}

func (s *stubIndex) SeenKeys(attorneyID string) (map[string]bool, error) {
	s.asked = append(s.asked, attorneyID)
	out := map[string]bool{}
	for k := range s.seen {
		out[k] = true
	}
	return out, nil
}

func snapshotReview(reviewer, date, body string) string {
	return fmt.Sprintf(`
	<div class="client-review">
		<div class="client-review-header"><p>Posted by %s | %s</p></div>
		<div class="client-review-content"><p><span>%s</span></p></div>
	</div>`, reviewer, date, body)
}

func TestConvertPages_FallsBackToSnapshotID(t *testing.T) {
	// Pages captured by other tooling carry no canonical link; identity
	// must come from the snapshot name, never be empty.
	pages := []models.RawPage{
		{Index: 1, HTML: `<html><body><h1 class="profile-name">Jane Roe</h1>` +
			snapshotReview("Sarah", "August 3, 2025", "Excellent.") + `</body></html>`},
	}
	index := &stubIndex{}

	records, err := ConvertPages(pages, "90210-ca-jane-roe-55", 0, testNow, index, logger.New("error"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "90210-ca-jane-roe-55", records[0].AttorneyID)
	require.Equal(t, "90210-ca-jane-roe-55", records[0].SourceURL)
	require.Equal(t, []string{"90210-ca-jane-roe-55"}, index.asked)
}

func TestConvertPages_UsesCanonicalLink(t *testing.T) {
	canonical := "https://www.avvo.com/attorneys/90210-ca-jane-roe-55.html"
	pages := []models.RawPage{
		{Index: 1, HTML: `<html><head><link rel="canonical" href="` + canonical + `"></head><body>` +
			`<h1 class="profile-name">Jane Roe</h1>` +
			snapshotReview("Sarah", "August 3, 2025", "Excellent.") + `</body></html>`},
	}

	records, err := ConvertPages(pages, "jane-snapshots", 0, testNow, &stubIndex{}, logger.New("error"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "90210-ca-jane-roe-55", records[0].AttorneyID)
	require.Equal(t, canonical, records[0].SourceURL)
}

func TestConvertPages_DedupsAndStopsAtOldReview(t *testing.T) {
	pages := []models.RawPage{
		{Index: 1, HTML: `<html><body><h1 class="profile-name">Jane Roe</h1>` +
			snapshotReview("Sarah", "August 3, 2025", "Already written.") +
			snapshotReview("Tom", "August 10, 2025", "New.") + `</body></html>`},
		{Index: 2, HTML: `<html><body>` +
			snapshotReview("Ancient", "January 5, 2019", "Old.") + `</body></html>`},
		{Index: 3, HTML: `<html><body>` +
			snapshotReview("Never", "August 12, 2025", "Unreached.") + `</body></html>`},
	}
	index := &stubIndex{seen: map[string]bool{
		"90210-ca-jane-roe-55|Sarah|2025-08-03|unknown": true,
	}}

	records, err := ConvertPages(pages, "90210-ca-jane-roe-55", 30, testNow, index, logger.New("error"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Tom", records[0].Reviewer)
}

func TestConvertPages_NoPages(t *testing.T) {
	records, err := ConvertPages(nil, "x", 0, testNow, &stubIndex{}, logger.New("error"))
	require.NoError(t, err)
	require.Empty(t, records)
}
