package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib" // Import the driver

	"avvo-crawler/pkg/models"
)

// PostgresSink mirrors review batches into a Postgres table. The
// identity-key columns carry a unique constraint, so re-runs are
// idempotent on the database side too.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink connects to dbURL, retrying briefly since the
// database may still be starting when the run begins.
func NewPostgresSink(dbURL string) (*PostgresSink, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 5; i++ {
		db, err = sql.Open("pgx", dbURL)
		if err == nil {
			if err = db.Ping(); err == nil {
				return &PostgresSink{db: db}, nil
			}
			db.Close()
		}
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connecting to database: %w", err)
}

func (s *PostgresSink) Save(batch []models.Record) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO reviews (
			attorney_id, attorney_name, reviewer_name, review_rating,
			review_date, review_title, review_text, review_type,
			attorney_response_name, attorney_response_date, attorney_response_text,
			source_url, page_index, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (attorney_id, reviewer_name, review_date, review_rating) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range batch {
		_, err := stmt.Exec(
			rec.AttorneyID,
			rec.AttorneyName,
			rec.Reviewer,
			rec.RatingString(),
			rec.DateString(),
			rec.Title,
			rec.Text,
			rec.ReviewType,
			rec.ResponseName,
			rec.ResponseDate,
			rec.ResponseText,
			rec.SourceURL,
			rec.PageIndex,
			rec.ScrapedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting review for %s: %w", rec.AttorneyID, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
