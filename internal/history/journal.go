// internal/history/journal.go
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adrg/xdg"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultJournalPath is the journal location relative to the XDG data home.
const DefaultJournalPath = "ezspanner/history.db"

// SQLiteJournal persists history entries so they survive restarts.
// Rows are only ever inserted.
type SQLiteJournal struct {
	db *sql.DB
}

// OpenJournal opens (creating if needed) the journal at path. An empty path
// selects the XDG data file.
func OpenJournal(path string) (*SQLiteJournal, error) {
	if path == "" {
		p, err := xdg.DataFile(DefaultJournalPath)
		if err != nil {
			return nil, fmt.Errorf("resolve journal path: %w", err)
		}
		path = p
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" journals coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			query TEXT NOT NULL,
			results TEXT NOT NULL,
			executed_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_entries_executed_at ON entries(executed_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

// Close closes the database connection
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Write inserts e.
func (j *SQLiteJournal) Write(e Entry) error {
	results, err := json.Marshal(e.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	_, err = j.db.Exec(`
		INSERT INTO entries (id, query, results, executed_at)
		VALUES (?, ?, ?, ?)
	`, e.ID, e.Query, string(results), e.ExecutedAt.UnixNano())
	return err
}

// Entries returns every journaled entry in the order it was written.
func (j *SQLiteJournal) Entries() ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, query, results, executed_at
		FROM entries
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			results string
			nanos   int64
		)
		if err := rows.Scan(&e.ID, &e.Query, &results, &nanos); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(results), &e.Results); err != nil {
			return nil, fmt.Errorf("decode results of %s: %w", e.ID, err)
		}
		e.ExecutedAt = time.Unix(0, nanos)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of journaled entries.
func (j *SQLiteJournal) Count() (int, error) {
	var count int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&count)
	return count, err
}

// Load opens the journal at path, replays its entries into a new Store and
// attaches the journal to it.
func Load(path string, opts ...Option) (*Store, *SQLiteJournal, error) {
	j, err := OpenJournal(path)
	if err != nil {
		return nil, nil, err
	}
	entries, err := j.Entries()
	if err != nil {
		j.Close()
		return nil, nil, fmt.Errorf("replay journal: %w", err)
	}
	s := NewStore(append(opts, WithJournal(j))...)
	s.Restore(entries)
	return s, j, nil
}
