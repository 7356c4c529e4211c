// Package runlog records the notable events of Gradient program runs (print
// output, model training, file writes) in an SQLite database.
package runlog

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"
)

// DefaultMaxRows bounds the events kept in the database.
const DefaultMaxRows = 10000

// Config holds configuration for the run log.
type Config struct {
	MaxRows  int       // oldest events beyond this are pruned (default 10000)
	Filename string    // program file recorded with each event
	Warn     io.Writer // pruning failures are reported here (default stderr)
}

// Event is one recorded event.
type Event struct {
	ID        int64
	Run       string
	Kind      string
	Filename  string
	Line      int
	Detail    string
	Timestamp time.Time
}

// RunLog manages the run log database.
type RunLog struct {
	mu       sync.Mutex
	db       *sql.DB
	path     string
	run      string
	filename string
	maxRows  int
	warn     io.Writer
}

// Open opens or creates the run log at path. Each RunLog is one run: its
// events share a run id.
func Open(path string, cfg Config) (*RunLog, error) {
	if path == "" {
		return nil, fmt.Errorf("run log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating run log directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening run log database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to run log database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	rl := &RunLog{
		db:       db,
		path:     path,
		run:      time.Now().UTC().Format("20060102T150405.000000000Z"),
		filename: cfg.Filename,
		maxRows:  cfg.MaxRows,
		warn:     cfg.Warn,
	}
	if rl.maxRows <= 0 {
		rl.maxRows = DefaultMaxRows
	}
	if rl.warn == nil {
		rl.warn = os.Stderr
	}

	if err := rl.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating run log schema: %w", err)
	}
	return rl, nil
}

func (rl *RunLog) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run TEXT NOT NULL,
			kind TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			line INTEGER NOT NULL,
			detail TEXT NOT NULL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_events_run ON events(run);
	`
	_, err := rl.db.Exec(schema)
	return err
}

// Record writes one event.
func (rl *RunLog) Record(kind, detail string, line int) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	_, err := rl.db.Exec(`
		INSERT INTO events (run, kind, filename, line, detail)
		VALUES (?, ?, ?, ?, ?)
	`, rl.run, kind, rl.filename, line, detail)
	if err != nil {
		return fmt.Errorf("recording %s event: %w", kind, err)
	}

	if err := rl.prune(); err != nil {
		fmt.Fprintf(rl.warn, "[WARN] run log pruning failed: %v\n", err)
	}
	return nil
}

// prune deletes the oldest events beyond maxRows. Must be called with the
// lock held.
func (rl *RunLog) prune() error {
	var total int
	if err := rl.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&total); err != nil {
		return err
	}
	if total <= rl.maxRows {
		return nil
	}
	_, err := rl.db.Exec(`
		DELETE FROM events WHERE id IN (
			SELECT id FROM events ORDER BY id ASC LIMIT ?
		)
	`, total-rl.maxRows)
	return err
}

// Run returns the id shared by this run's events.
func (rl *RunLog) Run() string { return rl.run }

// Events returns up to limit events, newest first. An empty run means every
// run.
func (rl *RunLog) Events(run string, limit int) ([]Event, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limit <= 0 {
		limit = 1000
	}

	var rows *sql.Rows
	var err error
	if run == "" {
		rows, err = rl.db.Query(`
			SELECT id, run, kind, filename, line, detail, timestamp
			FROM events ORDER BY id DESC LIMIT ?
		`, limit)
	} else {
		rows, err = rl.db.Query(`
			SELECT id, run, kind, filename, line, detail, timestamp
			FROM events WHERE run = ? ORDER BY id DESC LIMIT ?
		`, run, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts string
		if err := rows.Scan(&e.ID, &e.Run, &e.Kind, &e.Filename, &e.Line, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		for _, layout := range []string{
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05Z",
			time.RFC3339,
		} {
			if t, err := time.Parse(layout, ts); err == nil {
				e.Timestamp = t
				break
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the number of stored events.
func (rl *RunLog) Count() (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	var n int
	err := rl.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&n)
	return n, err
}

// Clear removes every event.
func (rl *RunLog) Clear() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	_, err := rl.db.Exec("DELETE FROM events")
	return err
}

// Close closes the database connection.
func (rl *RunLog) Close() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.db.Close()
}

// Path returns the path to the database file.
func (rl *RunLog) Path() string {
	return rl.path
}
