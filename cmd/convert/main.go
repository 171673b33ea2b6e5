package main

import (
	"flag"
	"os"
	"time"

	"avvo-crawler/internal/crawler"
	"avvo-crawler/internal/logger"
	"avvo-crawler/internal/storage"
)

// convert rebuilds the review CSV from previously captured page
// snapshots, without touching the network. Useful after parser fixes
// or for pages fetched by other tooling.
func main() {
	snapshotDir := flag.String("snapshots", "snapshots", "Directory of captured page snapshots")
	outputCSV := flag.String("output", "avvo_reviews.csv", "CSV file reviews are appended to")
	daysBack := flag.Int("days-back", 0, "Recency window in days (0 keeps every review)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	log := logger.New(*logLevel)

	store, err := storage.NewSnapshotStore(*snapshotDir)
	if err != nil {
		log.Error("could not open snapshot dir", "dir", *snapshotDir, "error", err)
		os.Exit(1)
	}

	ids, err := store.TargetIDs()
	if err != nil {
		log.Error("could not list snapshots", "dir", *snapshotDir, "error", err)
		os.Exit(1)
	}
	if len(ids) == 0 {
		log.Error("no snapshots found", "dir", *snapshotDir)
		os.Exit(1)
	}

	sink, err := storage.NewCSVSink(*outputCSV)
	if err != nil {
		log.Error("could not open output CSV", "path", *outputCSV, "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	now := time.Now()
	total := 0

	for _, id := range ids {
		pages, err := store.Pages(id)
		if err != nil {
			log.Error("could not read snapshots", "target", id, "error", err)
			os.Exit(1)
		}

		batch, err := crawler.ConvertPages(pages, id, *daysBack, now, sink, log)
		if err != nil {
			log.Error("conversion aborted", "target", id, "error", err)
			os.Exit(1)
		}

		if err := sink.Save(batch); err != nil {
			log.Error("could not write output", "target", id, "error", err)
			os.Exit(1)
		}
		log.Info("target converted", "target", id, "pages", len(pages), "new_records", len(batch))
		total += len(batch)
	}

	log.Info("conversion finished", "targets", len(ids), "new_records", total)
}
