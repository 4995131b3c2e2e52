package history

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/studiowebux/ballast/internal/config"
	"github.com/studiowebux/ballast/internal/migrations"
	"github.com/studiowebux/ballast/internal/types"
)

// SQLiteStore keeps one row per snapshot
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore opens (or creates) the database at dbPath and migrates it.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := config.EnsureParentDir(dbPath); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open snapshot database: %v", types.ErrPersistence, err)
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to connect to snapshot database: %v", types.ErrPersistence, err)
	}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to run migrations: %v", types.ErrPersistence, err)
	}

	return &SQLiteStore{db: db, opts: buildOptions(opts)}, nil
}

// Append inserts a new snapshot row
func (s *SQLiteStore) Append(results []types.TestResult, description string) (*types.Snapshot, error) {
	snap, err := newSnapshot(s.opts.now(), results, description)
	if err != nil {
		return nil, err
	}

	outputs, err := json.Marshal(snap.Outputs)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode results: %v", types.ErrPersistence, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO snapshots (id, timestamp, description, outputs) VALUES (?, ?, ?, ?)`,
		snap.ID, int64(snap.Timestamp), snap.Description, string(outputs),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to save snapshot: %v", types.ErrPersistence, err)
	}

	s.opts.logger.Debug("snapshot appended", zap.String("id", snap.ID), zap.Uint64("timestamp", snap.Timestamp))
	return snap, nil
}

// Latest returns the snapshot with the greatest timestamp
func (s *SQLiteStore) Latest() (*types.Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, description, outputs
		FROM snapshots
		ORDER BY timestamp DESC, seq DESC
		LIMIT 1
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load latest snapshot: %v", types.ErrPersistence, err)
	}
	defer rows.Close()

	snapshots, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return &snapshots[0], nil
}

// List returns all snapshots in ascending timestamp order
func (s *SQLiteStore) List() ([]types.Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, description, outputs
		FROM snapshots
		ORDER BY timestamp ASC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load snapshots: %v", types.ErrPersistence, err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]types.Snapshot, error) {
	var snapshots []types.Snapshot

	for rows.Next() {
		var (
			snap      types.Snapshot
			timestamp int64
			outputs   string
		)
		if err := rows.Scan(&snap.ID, &timestamp, &snap.Description, &outputs); err != nil {
			return nil, fmt.Errorf("%w: failed to scan snapshot: %v", types.ErrPersistence, err)
		}
		if err := json.Unmarshal([]byte(outputs), &snap.Outputs); err != nil {
			return nil, fmt.Errorf("%w: snapshot %s has corrupt outputs: %v", types.ErrPersistence, snap.ID, err)
		}
		snap.Timestamp = uint64(timestamp)
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	return snapshots, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
