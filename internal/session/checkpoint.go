package session

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"etlkit/internal/dataset"
)

// ── Checkpointing ──────────────────────────────────────────
// A checkpoint materializes a dataset snapshot to stable storage so that
// downstream failures can recover without recomputation. Snapshots are
// JSON files named by UUID; a small binary marker records the latest one
// (row count + path) so recovery can find it without scanning the dir.

const markerFile = "LATEST"

// Checkpoint is an immutable snapshot reference.
type Checkpoint struct {
	ID   string
	Path string
	Rows int
}

// Checkpoint writes the dataset snapshot to the configured checkpoint
// directory and updates the latest-checkpoint marker.
func (s *Session) Checkpoint(ds *dataset.Dataset) (*Checkpoint, error) {
	if s.stopped() {
		return nil, fmt.Errorf("checkpoint: %w", ErrStopped)
	}
	if s.cfg.CheckpointDir == "" {
		return nil, fmt.Errorf("checkpoint: no checkpoint dir configured")
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	id := uuid.New().String()
	path := filepath.Join(s.cfg.CheckpointDir, "ckpt-"+id+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	ckpt := &Checkpoint{ID: id, Path: path, Rows: ds.Len()}
	if err := s.writeMarker(ckpt); err != nil {
		return nil, err
	}
	return ckpt, nil
}

// LatestCheckpoint reads the marker and returns the most recent checkpoint,
// or nil when none has been made.
func (s *Session) LatestCheckpoint() (*Checkpoint, error) {
	if s.cfg.CheckpointDir == "" {
		return nil, fmt.Errorf("checkpoint: no checkpoint dir configured")
	}
	bs, err := os.ReadFile(filepath.Join(s.cfg.CheckpointDir, markerFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read marker: %w", err)
	}
	if len(bs) < 4 {
		return nil, nil
	}
	path := string(bs[4:])
	return &Checkpoint{
		ID:   checkpointID(path),
		Path: path,
		Rows: int(binary.BigEndian.Uint32(bs[:4])),
	}, nil
}

// RemoveCheckpoints deletes all snapshots and the marker.
func (s *Session) RemoveCheckpoints() error {
	if s.cfg.CheckpointDir == "" {
		return nil
	}
	if err := os.RemoveAll(s.cfg.CheckpointDir); err != nil {
		return fmt.Errorf("remove checkpoints: %w", err)
	}
	return os.MkdirAll(s.cfg.CheckpointDir, 0o755)
}

func (s *Session) writeMarker(ckpt *Checkpoint) error {
	buf := make([]byte, 4, 4+len(ckpt.Path))
	binary.BigEndian.PutUint32(buf, uint32(ckpt.Rows))
	buf = append(buf, ckpt.Path...)
	path := filepath.Join(s.cfg.CheckpointDir, markerFile)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	return nil
}

// Load reloads the snapshot from disk.
func (c *Checkpoint) Load() (*dataset.Dataset, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var ds dataset.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &ds, nil
}

// Count reloads the snapshot and returns its row count, confirming the
// checkpoint is durable and complete.
func (c *Checkpoint) Count() (int, error) {
	ds, err := c.Load()
	if err != nil {
		return 0, err
	}
	return ds.Len(), nil
}

func checkpointID(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	return strings.TrimPrefix(base, "ckpt-")
}
