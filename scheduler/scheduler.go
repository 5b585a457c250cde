package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Rovis91/lbc/config"
	"github.com/Rovis91/lbc/scraper"
	"github.com/Rovis91/lbc/storage"
)

// Scheduler runs the orchestrator on a cron expression or a fixed
// interval. Cron wins when both are configured.
type Scheduler struct {
	cfg          *config.Config
	orchestrator *scraper.Orchestrator
	ops          *storage.OpsStore
	cron         *cron.Cron
	ticker       *time.Ticker
	stopCh       chan struct{}
}

func New(cfg *config.Config, orchestrator *scraper.Orchestrator, ops *storage.OpsStore) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		ops:          ops,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			if err := s.orchestrator.Run(ctx); err != nil {
				log.Printf("Scheduled run error: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
		return nil
	}

	if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		if s.runOverdue() {
			go func() {
				if err := s.orchestrator.Run(ctx); err != nil {
					log.Printf("Startup run error: %v", err)
				}
			}()
		}
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					if err := s.orchestrator.Run(ctx); err != nil {
						log.Printf("Scheduled run error: %v", err)
					}
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	}

	log.Println("No schedule configured, daemon is idle")
	return nil
}

// runOverdue reports whether the last completed run is older than the
// configured interval, so a restarted daemon does not wait a full cycle.
func (s *Scheduler) runOverdue() bool {
	if s.ops == nil {
		return true
	}
	last, err := s.ops.GetLastRunTime()
	if err != nil {
		log.Printf("Warning: failed to read last run time: %v", err)
		return true
	}
	if last.IsZero() {
		return true
	}
	return time.Since(last) >= s.cfg.Scheduler.Interval
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

func (s *Scheduler) TriggerNow(ctx context.Context) error {
	return s.orchestrator.Run(ctx)
}
