package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/studiowebux/ballast/internal/config"
	"github.com/studiowebux/ballast/internal/types"
)

// FileStore keeps every snapshot in a single JSON array document
type FileStore struct {
	path string
	opts options
}

// NewFileStore creates a store backed by the JSON file at path. The file is
// created on the first Append.
func NewFileStore(path string, opts ...Option) *FileStore {
	return &FileStore{path: path, opts: buildOptions(opts)}
}

// load reads the whole collection. A missing or blank file is an empty
// collection; anything unparsable is a persistence error.
func (s *FileStore) load() ([]types.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read snapshot file %s: %v", types.ErrPersistence, s.path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var snapshots []types.Snapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("%w: snapshot file %s is corrupt: %v", types.ErrPersistence, s.path, err)
	}
	return snapshots, nil
}

// Append adds a snapshot and rewrites the file through a temporary file and
// rename, so a failed write never truncates the existing history.
func (s *FileStore) Append(results []types.TestResult, description string) (*types.Snapshot, error) {
	snapshots, err := s.load()
	if err != nil {
		return nil, err
	}

	snap, err := newSnapshot(s.opts.now(), results, description)
	if err != nil {
		return nil, err
	}
	snapshots = append(snapshots, *snap)

	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode snapshots: %v", types.ErrPersistence, err)
	}

	if err := s.writeAtomic(data); err != nil {
		return nil, err
	}

	s.opts.logger.Debug("snapshot appended",
		zap.String("path", s.path),
		zap.String("id", snap.ID),
		zap.Uint64("timestamp", snap.Timestamp),
		zap.Int("snapshots", len(snapshots)),
	)
	return snap, nil
}

func (s *FileStore) writeAtomic(data []byte) error {
	if err := config.EnsureParentDir(s.path); err != nil {
		return fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file: %v", types.ErrPersistence, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write snapshots: %v", types.ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to sync snapshots: %v", types.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temporary file: %v", types.ErrPersistence, err)
	}
	if err := os.Chmod(tmpPath, config.FilePermissions); err != nil {
		return fmt.Errorf("%w: failed to set permissions: %v", types.ErrPersistence, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %v", types.ErrPersistence, s.path, err)
	}
	return nil
}

// Latest returns the snapshot with the greatest timestamp regardless of its
// position in the file. Ties go to the later entry.
func (s *FileStore) Latest() (*types.Snapshot, error) {
	snapshots, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}

	latest := 0
	for i := range snapshots {
		if snapshots[i].Timestamp >= snapshots[latest].Timestamp {
			latest = i
		}
	}
	return &snapshots[latest], nil
}

// List returns all snapshots in ascending timestamp order
func (s *FileStore) List() ([]types.Snapshot, error) {
	snapshots, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp < snapshots[j].Timestamp
	})
	return snapshots, nil
}

// Close is a no-op; the file is only open during each call
func (s *FileStore) Close() error {
	return nil
}
