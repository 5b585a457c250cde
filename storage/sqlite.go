package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Rovis91/lbc/models"
)

// OpsStore keeps operational data (run history, log lines) in a local
// SQLite file, separate from the domain database.
type OpsStore struct {
	db *sql.DB
}

func NewOpsStore(dbPath string) (*OpsStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &OpsStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *OpsStore) Close() error {
	return s.db.Close()
}

func (s *OpsStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		cities_total INTEGER DEFAULT 0,
		cities_success INTEGER DEFAULT 0,
		cities_warnings INTEGER DEFAULT 0,
		cities_errors INTEGER DEFAULT 0,
		listings_stored INTEGER DEFAULT 0,
		duplicates_skipped INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		city TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *OpsStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (started_at, status)
		VALUES (?, ?)`,
		run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *OpsStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, cities_total = ?,
			cities_success = ?, cities_warnings = ?, cities_errors = ?,
			listings_stored = ?, duplicates_skipped = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.CitiesTotal,
		run.CitiesSuccess, run.CitiesWarnings, run.CitiesErrors,
		run.ListingsStored, run.DuplicatesSkipped, run.ID)
	return err
}

func (s *OpsStore) Log(runID *int64, level models.LogLevel, message, city string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, city)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, city)
	return err
}

// GetLastRunTime returns the start time of the most recent completed run,
// zero time when no run exists yet.
func (s *OpsStore) GetLastRunTime() (time.Time, error) {
	var t time.Time
	err := s.db.QueryRow(`
		SELECT started_at FROM scrape_runs
		WHERE status = 'completed'
		ORDER BY started_at DESC LIMIT 1`).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
