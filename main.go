package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rovis91/lbc/config"
	"github.com/Rovis91/lbc/httputil"
	"github.com/Rovis91/lbc/logging"
	"github.com/Rovis91/lbc/notify"
	"github.com/Rovis91/lbc/scheduler"
	"github.com/Rovis91/lbc/scraper"
	"github.com/Rovis91/lbc/services"
	"github.com/Rovis91/lbc/storage"
	"github.com/Rovis91/lbc/workers"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run one scraping pass and exit")
)

func main() {
	flag.Parse()

	logFile, err := logging.Setup("scraper.log", 0)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting leboncoin scraper...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d source configs", len(cfg.Sources))

	clients := httputil.NewClients(&cfg.Proxy)
	if cfg.Proxy.URL != "" {
		log.Printf("Proxy: %s", cfg.Proxy.URL)
	}

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Database.URL))

	opsStore, err := storage.NewOpsStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open operational database: %v", err)
	}
	defer opsStore.Close()
	log.Printf("Operational database: %s", cfg.DBPath)

	source := cfg.Source("leboncoin")
	client := scraper.NewSearchClient(source, clients.Scraping)
	fetcher := scraper.NewFetcher(client, &cfg.Scraper)
	listingService := services.NewListingService(pgStore)
	notifier := notify.NewTelegram(&cfg.Telegram, clients.API)

	orchestrator := scraper.NewOrchestrator(cfg, fetcher, listingService, pgStore, opsStore, notifier)

	if *scrapeNow {
		log.Println("Running scrape...")
		if err := orchestrator.Run(ctx); err != nil {
			log.Fatalf("Scrape failed: %v", err)
		}
		log.Println("Scrape complete!")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.New(cfg, orchestrator, opsStore)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	var uploader workers.Uploader = workers.NoOpUploader{}
	if cfg.S3.Bucket != "" {
		s3Uploader, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			log.Printf("Warning: S3 uploader unavailable, images will not be archived: %v", err)
		} else {
			uploader = s3Uploader
		}
	}

	imageWorker := workers.NewImageWorker(pgStore, uploader, clients.Scraping)
	go imageWorker.Run(ctx, 20, 2*time.Minute)
	log.Println("Image worker started")

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString hides the password portion of a database URL.
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx, atIdx := -1, -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
