package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// LoadCheckpoint returns the translated lines recorded for chapter index.
// A missing file yields ErrNotFound; any other failure (unreadable file,
// invalid JSON) is returned as-is so callers can tell the two apart.
func (l *Layout) LoadCheckpoint(index int) ([]string, error) {
	path := l.CheckpointPath(index)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read checkpoint %d: %w", index, err)
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("storage: parse checkpoint %d: %w", index, err)
	}
	if lines == nil {
		// "null" on disk
		return nil, fmt.Errorf("storage: parse checkpoint %d: not an array", index)
	}
	return lines, nil
}

// SaveCheckpoint replaces the checkpoint of chapter index with lines.
func (l *Layout) SaveCheckpoint(index int, lines []string) error {
	if lines == nil {
		lines = []string{}
	}
	data, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode checkpoint %d: %w", index, err)
	}
	return WriteFileAtomic(l.CheckpointPath(index), data)
}

// DeleteCheckpoint removes the checkpoint of chapter index. A checkpoint that
// is already gone is not an error.
func (l *Layout) DeleteCheckpoint(index int) error {
	err := os.Remove(l.CheckpointPath(index))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete checkpoint %d: %w", index, err)
	}
	return nil
}

// HasCheckpoint reports whether chapter index has a checkpoint on disk.
func (l *Layout) HasCheckpoint(index int) bool { return exists(l.CheckpointPath(index)) }
