package crawler

import (
	"time"

	"avvo-crawler/internal/logger"
	"avvo-crawler/pkg/models"
)

// SeenIndex rebuilds the dedup key set for an attorney from the
// durable output.
type SeenIndex interface {
	SeenKeys(attorneyID string) (map[string]bool, error)
}

// ConvertPages replays previously captured pages for one target
// through the parse and normalize stages, returning the new records in
// pagination order. Pages captured by other tooling may lack a
// canonical link, so the snapshot-derived target id backs up the
// attorney identity.
func ConvertPages(
	pages []models.RawPage,
	targetID string,
	daysBack int,
	now time.Time,
	index SeenIndex,
	log *logger.Logger,
) ([]models.Record, error) {
	if len(pages) == 0 {
		return nil, nil
	}

	profile := ParseProfile(pages[0].HTML, "")
	if profile.AttorneyID == "" {
		profile.AttorneyID = targetID
	}

	seen, err := index.SeenKeys(profile.AttorneyID)
	if err != nil {
		return nil, err
	}

	sourceURL := profile.CanonicalURL
	if sourceURL == "" {
		sourceURL = targetID
	}
	target := models.Target{URL: sourceURL, DaysBack: daysBack}

	norm := NewNormalizer(now)
	var batch []models.Record
	for _, page := range pages {
		raws, err := ParseReviews(page.HTML)
		if err != nil {
			log.Warn("parse anomaly, treating page as empty", "target", targetID, "page", page.Index, "error", err)
			continue
		}

		records, sawOld := norm.Normalize(raws, profile, target, page.Index, seen)
		batch = append(batch, records...)
		if sawOld {
			log.Debug("review older than window found, skipping later pages", "target", targetID, "page", page.Index)
			break
		}
	}

	return batch, nil
}
