package scraper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Rovis91/lbc/config"
	"github.com/Rovis91/lbc/models"
	"github.com/Rovis91/lbc/services"
	"github.com/Rovis91/lbc/storage"
)

// Notifier is the outbound reporting channel. The orchestrator only
// supplies structured run statistics; formatting lives behind this
// interface.
type Notifier interface {
	SendReport(r *models.Report) error
	SendNoCitiesMessage() error
	SendErrorReport(runErr error) error
}

// Orchestrator drives one full scraping run: cities due for scraping,
// one city at a time, one category at a time. Everything is sequential;
// the inter-city delay doubles as client-side rate limiting.
type Orchestrator struct {
	cfg      *config.Config
	fetcher  *Fetcher
	listings *services.ListingService
	store    *storage.PostgresStore
	ops      *storage.OpsStore
	notifier Notifier
}

func NewOrchestrator(
	cfg *config.Config,
	fetcher *Fetcher,
	listings *services.ListingService,
	store *storage.PostgresStore,
	ops *storage.OpsStore,
	notifier Notifier,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		fetcher:  fetcher,
		listings: listings,
		store:    store,
		ops:      ops,
		notifier: notifier,
	}
}

// Run executes one orchestration pass. Per-city failures are absorbed
// into the statistics; only a failure to obtain the city list is fatal,
// and it is reported through the notification channel before returning.
func (o *Orchestrator) Run(ctx context.Context) error {
	start := time.Now()
	log.Println("Starting scraping orchestration...")

	run := &models.ScrapeRun{StartedAt: start, Status: models.RunStatusRunning}
	if o.ops != nil {
		id, err := o.ops.CreateRun(run)
		if err != nil {
			log.Printf("Warning: failed to create run record: %v", err)
		} else {
			run.ID = id
		}
	}

	cities, err := o.store.GetCitiesToScrape(ctx, o.cfg.Scraper.IntervalHours)
	if err != nil {
		err = fmt.Errorf("get cities to scrape: %w", err)
		o.log(run, models.LogLevelError, err.Error(), "")
		o.finishRun(run, models.RunStatusFailed)
		if o.notifier != nil {
			o.notifier.SendErrorReport(err)
		}
		return err
	}

	if len(cities) == 0 {
		o.log(run, models.LogLevelInfo, "No cities require scraping", "")
		if o.notifier != nil {
			o.notifier.SendNoCitiesMessage()
		}
		o.finishRun(run, models.RunStatusCompleted)
		return nil
	}

	run.CitiesTotal = len(cities)
	o.log(run, models.LogLevelInfo, fmt.Sprintf("Found %d cities to scrape", len(cities)), "")

	for i := range cities {
		o.processCity(ctx, run, &cities[i])

		if i < len(cities)-1 {
			select {
			case <-ctx.Done():
				o.finishRun(run, models.RunStatusFailed)
				return ctx.Err()
			case <-time.After(o.cfg.Scraper.CityDelay):
			}
		}
	}

	finished := time.Now()
	report := &models.Report{
		TotalCities:    run.CitiesTotal,
		CitiesSuccess:  run.CitiesSuccess,
		CitiesErrors:   run.CitiesErrors,
		CitiesWarnings: run.CitiesWarnings,
		NewListings:    run.ListingsStored,
		Duplicates:     run.DuplicatesSkipped,
		Duration:       finished.Sub(start),
		FinishedAt:     finished,
	}

	if o.notifier != nil {
		if err := o.notifier.SendReport(report); err != nil {
			log.Printf("Warning: failed to send final report: %v", err)
		}
	}

	o.logSummary(report)
	o.finishRun(run, models.RunStatusCompleted)
	return nil
}

func (o *Orchestrator) processCity(ctx context.Context, run *models.ScrapeRun, city *models.City) {
	log.Printf("Processing %s (%s)", city.Name, city.PostalCode)

	var categories []models.Category
	if city.NeedsSaleScrape {
		categories = append(categories, models.CategorySale)
	}
	if city.NeedsRentScrape {
		categories = append(categories, models.CategoryRental)
	}
	if len(categories) == 0 {
		return
	}

	var cityStored, cityDuplicates int

	for _, category := range categories {
		o.log(run, models.LogLevelInfo, fmt.Sprintf("Scraping %s listings", category), city.Name)

		res, err := o.fetcher.FetchCity(ctx, city, category, o.cfg.Scraper.MaxListings)
		if err != nil {
			// Structural extraction error: count the city as failed but
			// keep what was fetched before the bad record.
			o.log(run, models.LogLevelError, fmt.Sprintf("Error processing %s/%s: %v", city.Name, category, err), city.Name)
			run.CitiesErrors++
			return
		}

		stored, duplicates := o.listings.StoreBatch(ctx, res.Listings, city.ID, category)
		cityStored += stored
		cityDuplicates += duplicates + res.Duplicates

		if err := o.store.UpdateCityScrapeTimestamp(ctx, city.ID, category); err != nil {
			log.Printf("Warning: failed to update scrape timestamp for city %d: %v", city.ID, err)
		}

		o.log(run, models.LogLevelInfo,
			fmt.Sprintf("Found %d %s listings, stored %d", len(res.Listings), category, stored), city.Name)
	}

	run.ListingsStored += cityStored
	run.DuplicatesSkipped += cityDuplicates
	if cityStored > 0 {
		run.CitiesSuccess++
	} else {
		run.CitiesWarnings++
		o.log(run, models.LogLevelWarn, "No new listings found", city.Name)
	}
}

func (o *Orchestrator) finishRun(run *models.ScrapeRun, status models.RunStatus) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	if o.ops != nil {
		if err := o.ops.UpdateRun(run); err != nil {
			log.Printf("Warning: failed to update run record: %v", err)
		}
	}
}

func (o *Orchestrator) log(run *models.ScrapeRun, level models.LogLevel, message, city string) {
	log.Printf("[%s] %s", level, message)
	if o.ops != nil && run.ID != 0 {
		o.ops.Log(&run.ID, level, message, city)
	}
}

func (o *Orchestrator) logSummary(r *models.Report) {
	log.Println("SCRAPING COMPLETED")
	log.Printf("  Successful cities: %d/%d", r.CitiesSuccess, r.TotalCities)
	log.Printf("  Errors: %d cities", r.CitiesErrors)
	log.Printf("  Warnings: %d cities (0 listings)", r.CitiesWarnings)
	log.Printf("  Duration: %s", r.DurationString())
	log.Printf("  New listings: %d", r.NewListings)
	log.Printf("  Duplicates avoided: %d", r.Duplicates)
}
