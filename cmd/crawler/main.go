package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"avvo-crawler/internal/config"
	"avvo-crawler/internal/crawler"
	"avvo-crawler/internal/crawler/engine"
	"avvo-crawler/internal/logger"
	"avvo-crawler/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Error("config load failed", "error", err)
		os.Exit(1)
	}

	urlsFile := flag.String("urls", cfg.URLsFile, "Input file with one profile URL per line")
	outputCSV := flag.String("output", cfg.OutputCSV, "CSV file reviews are appended to")
	daysBack := flag.Int("days-back", 0, "Override the recency window for every target (0 keeps per-file directives)")
	flag.Parse()

	log := logger.New(cfg.LogLevel)

	targets, err := crawler.LoadTargets(*urlsFile, log)
	if err != nil {
		if errors.Is(err, crawler.ErrNoTargets) {
			log.Error("no targets to process", "file", *urlsFile)
		} else {
			log.Error("could not load targets", "file", *urlsFile, "error", err)
		}
		os.Exit(1)
	}
	if *daysBack > 0 {
		for i := range targets {
			targets[i].DaysBack = *daysBack
		}
	}
	log.Info("targets loaded", "file", *urlsFile, "count", len(targets))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		log.Warn("interrupt received, finishing current target")
		cancel()
	}()

	fetcher, err := newFetcher(ctx, cfg, log)
	if err != nil {
		log.Error("could not start fetcher", "mode", cfg.FetchMode, "error", err)
		os.Exit(1)
	}
	defer fetcher.Close()

	csvSink, err := storage.NewCSVSink(*outputCSV)
	if err != nil {
		log.Error("could not open output CSV", "path", *outputCSV, "error", err)
		os.Exit(1)
	}
	defer csvSink.Close()

	sinks := []engine.Sink{csvSink}
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresSink(cfg.DatabaseURL)
		if err != nil {
			log.Error("could not connect to Postgres mirror", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		sinks = append(sinks, pg)
	}

	var snapshots engine.Snapshotter
	if cfg.SnapshotDir != "" {
		store, err := storage.NewSnapshotStore(cfg.SnapshotDir)
		if err != nil {
			log.Error("could not create snapshot dir", "dir", cfg.SnapshotDir, "error", err)
			os.Exit(1)
		}
		snapshots = store
	}

	eng := engine.New(
		engine.Config{
			MaxPages:       cfg.MaxPages,
			Retries:        cfg.Retries,
			InitialBackoff: cfg.InitialBackoff,
			RespectRobots:  cfg.RespectRobots,
		},
		fetcher,
		crawler.NewDomainManager(cfg.RateLimit, crawler.BrowserUserAgent),
		csvSink,
		sinks,
		snapshots,
		log,
	)

	summary, err := eng.Run(ctx, targets)
	for _, res := range summary.Results {
		if res.Completed() {
			log.Info("target done", "url", res.URL, "pages", res.Pages, "new_records", res.Records)
		} else {
			log.Warn("target partial", "url", res.URL, "pages", res.Pages, "new_records", res.Records,
				"kind", res.Failure, "error", res.Err)
		}
	}
	log.Info("run finished",
		"attempted", summary.Attempted,
		"completed", summary.Completed,
		"partial", summary.Partial,
		"new_records", summary.Records)

	if err != nil {
		log.Error("run aborted", "error", err)
		os.Exit(1)
	}
}

func newFetcher(ctx context.Context, cfg *config.Config, log *logger.Logger) (crawler.PageFetcher, error) {
	switch cfg.FetchMode {
	case "static":
		return crawler.NewStaticFetcher()
	default:
		return crawler.NewBrowserFetcher(ctx, cfg.Headless, cfg.NavTimeout, log)
	}
}
