// Package store persists fetched board snapshots to SQLite so operators
// can review recent history offline. One row per fetch, whole board as
// JSON plus a few indexed columns for listing.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/chainboard/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	fetched_at TEXT NOT NULL,
	overall TEXT NOT NULL,
	agent_count INTEGER NOT NULL,
	switch_phase TEXT NOT NULL,
	board_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_fetched ON snapshots(fetched_at);
`

// Store is the snapshot history database.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Record is one persisted snapshot row.
type Record struct {
	ID          int64
	FetchedAt   time.Time
	Overall     model.InvariantState
	AgentCount  int
	SwitchPhase model.SwitchPhase
	Board       model.BoardSnapshot
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("cannot create store directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cannot initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Insert persists one board snapshot.
func (s *Store) Insert(snap model.BoardSnapshot) error {
	board, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cannot encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO snapshots(fetched_at, overall, agent_count, switch_phase, board_json) VALUES(?,?,?,?,?)`,
		snap.FetchedAt.UTC().Format(time.RFC3339Nano),
		string(snap.Rail.Overall),
		len(snap.Agents),
		string(snap.KillSwitch.Phase),
		string(board),
	)
	if err != nil {
		return fmt.Errorf("cannot insert snapshot: %w", err)
	}
	return nil
}

// Recent returns the n newest snapshots, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	if n <= 0 {
		n = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT id, fetched_at, overall, agent_count, switch_phase, board_json
		 FROM snapshots ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("cannot query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			fetchedAt string
			overall   string
			phase     string
			board     string
		)
		if err := rows.Scan(&rec.ID, &fetchedAt, &overall, &rec.AgentCount, &phase, &board); err != nil {
			return nil, fmt.Errorf("cannot scan history row: %w", err)
		}
		rec.FetchedAt, err = time.Parse(time.RFC3339Nano, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt fetched_at %q: %w", fetchedAt, err)
		}
		rec.Overall = model.InvariantState(overall)
		rec.SwitchPhase = model.SwitchPhase(phase)
		if err := json.Unmarshal([]byte(board), &rec.Board); err != nil {
			return nil, fmt.Errorf("corrupt board row %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes everything but the keep newest rows. Returns how many
// rows were removed.
func (s *Store) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("cannot prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Count returns how many snapshots are stored.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cannot count history: %w", err)
	}
	return n, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
