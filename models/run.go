package models

import (
	"fmt"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ScrapeRun is the local bookkeeping record for one orchestration run.
type ScrapeRun struct {
	ID                int64      `json:"id" db:"id"`
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	FinishedAt        *time.Time `json:"finished_at" db:"finished_at"`
	Status            RunStatus  `json:"status" db:"status"`
	CitiesTotal       int        `json:"cities_total" db:"cities_total"`
	CitiesSuccess     int        `json:"cities_success" db:"cities_success"`
	CitiesWarnings    int        `json:"cities_warnings" db:"cities_warnings"`
	CitiesErrors      int        `json:"cities_errors" db:"cities_errors"`
	ListingsStored    int        `json:"listings_stored" db:"listings_stored"`
	DuplicatesSkipped int        `json:"duplicates_skipped" db:"duplicates_skipped"`
}

// Report carries the final run statistics handed to the notification
// channel. Formatting is the notifier's concern.
type Report struct {
	TotalCities    int
	CitiesSuccess  int
	CitiesErrors   int
	CitiesWarnings int
	NewListings    int
	Duplicates     int
	Duration       time.Duration
	FinishedAt     time.Time
}

// DurationString renders the run duration as "Xmin Ys".
func (r *Report) DurationString() string {
	total := int(r.Duration.Seconds())
	return fmt.Sprintf("%dmin %ds", total/60, total%60)
}
