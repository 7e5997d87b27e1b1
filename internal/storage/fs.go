// Package storage owns every durable file of a translation workspace: raw
// chapter text, per-chapter checkpoints, finalized chapters and the cached
// chapter list.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when a requested file does not exist.
var ErrNotFound = errors.New("storage: not found")

// Layout resolves workspace paths.
//
//	<root>/chapters.json           cached chapter list
//	<root>/terms.json              term store snapshot
//	<root>/raw/<n>.txt             extracted source text
//	<root>/checkpoints/<n>.json    in-progress translation
//	<root>/translated/<n>.txt      finalized translation
type Layout struct {
	root string
}

// New returns a Layout rooted at dir. Call EnsureDirs before writing.
func New(dir string) *Layout {
	return &Layout{root: dir}
}

// Root returns the workspace directory.
func (l *Layout) Root() string { return l.root }

// EnsureDirs creates the workspace tree.
func (l *Layout) EnsureDirs() error {
	for _, d := range []string{l.root, l.rawDir(), l.checkpointDir(), l.translatedDir()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("storage: create %s: %w", d, err)
		}
	}
	return nil
}

func (l *Layout) rawDir() string        { return filepath.Join(l.root, "raw") }
func (l *Layout) checkpointDir() string { return filepath.Join(l.root, "checkpoints") }
func (l *Layout) translatedDir() string { return filepath.Join(l.root, "translated") }

// RawPath is the extracted source text of chapter index.
func (l *Layout) RawPath(index int) string {
	return filepath.Join(l.rawDir(), fmt.Sprintf("%d.txt", index))
}

// CheckpointPath is the checkpoint file of chapter index.
func (l *Layout) CheckpointPath(index int) string {
	return filepath.Join(l.checkpointDir(), fmt.Sprintf("%d.json", index))
}

// TranslatedPath is the finalized output of chapter index.
func (l *Layout) TranslatedPath(index int) string {
	return filepath.Join(l.translatedDir(), fmt.Sprintf("%d.txt", index))
}

// ChaptersPath is the cached chapter list.
func (l *Layout) ChaptersPath() string { return filepath.Join(l.root, "chapters.json") }

// SnapshotPath is the term store snapshot.
func (l *Layout) SnapshotPath() string { return filepath.Join(l.root, "terms.json") }

// HasRaw reports whether the source text of chapter index is on disk.
func (l *Layout) HasRaw(index int) bool { return exists(l.RawPath(index)) }

// ReadRaw returns the source text of chapter index.
func (l *Layout) ReadRaw(index int) (string, error) {
	return readText(l.RawPath(index))
}

// WriteRaw stores the source text of chapter index.
func (l *Layout) WriteRaw(index int, text string) error {
	return WriteFileAtomic(l.RawPath(index), []byte(text))
}

// HasTranslated reports whether chapter index has been finalized.
func (l *Layout) HasTranslated(index int) bool { return exists(l.TranslatedPath(index)) }

// ReadTranslated returns the finalized output of chapter index.
func (l *Layout) ReadTranslated(index int) (string, error) {
	return readText(l.TranslatedPath(index))
}

// WriteTranslated finalizes chapter index.
func (l *Layout) WriteTranslated(index int, text string) error {
	return WriteFileAtomic(l.TranslatedPath(index), []byte(text))
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("storage: read %s: %w", path, err)
	}
	return string(data), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteFileAtomic writes content through a temp file in the same directory:
// tmp → fsync → rename. Readers never observe a partial file.
func WriteFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".noveltran-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
