package terms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/valpere/noveltran/internal"
	"github.com/valpere/noveltran/internal/storage"
)

// ReconcileStats summarises one Reconcile pass.
type ReconcileStats struct {
	Checked   int
	Upserted  int
	Unchanged int
	Failed    int
}

// LoadSnapshot reads a snapshot file. A missing file is an empty snapshot.
func LoadSnapshot(path string) ([]internal.TermPair, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []internal.TermPair{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("terms: read snapshot: %w", err)
	}

	var pairs []internal.TermPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("terms: parse snapshot %s: %w", path, err)
	}
	if pairs == nil {
		pairs = []internal.TermPair{}
	}
	return pairs, nil
}

// WriteSnapshot atomically writes pairs sorted by From.
func WriteSnapshot(path string, pairs []internal.TermPair) error {
	sorted := make([]internal.TermPair, len(pairs))
	copy(sorted, pairs)
	SortPairs(sorted)

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("terms: encode snapshot: %w", err)
	}
	return storage.WriteFileAtomic(path, data)
}

// SaveSnapshot rewrites the snapshot file from the store. It is a no-op when
// no snapshot path is configured.
func (s *Store) SaveSnapshot(ctx context.Context) error {
	if s.snapshotPath == "" {
		return nil
	}
	pairs, err := s.ExportAll(ctx)
	if err != nil {
		return err
	}
	return WriteSnapshot(s.snapshotPath, pairs)
}

// Reconcile brings the store in line with snapshot: every pair whose key is
// missing from the store, or present with a different target, is upserted.
// Individual failures are logged and skipped; a later run retries them. The
// snapshot file is then rewritten from the store.
func (s *Store) Reconcile(ctx context.Context, snapshot []internal.TermPair) (ReconcileStats, error) {
	var stats ReconcileStats

	live, err := s.ExportAll(ctx)
	if err != nil {
		return stats, err
	}
	current := make(map[string]string, len(live))
	for _, p := range live {
		current[NormalizeKey(p.From)] = p.To
	}

	for _, p := range snapshot {
		stats.Checked++
		key := NormalizeKey(p.From)
		to := strings.TrimSpace(p.To)
		if have, ok := current[key]; ok && have == to {
			stats.Unchanged++
			continue
		}
		if err := s.Upsert(ctx, p); err != nil {
			stats.Failed++
			s.logger.Warn("reconcile: skipping term",
				slog.String("from", p.From),
				slog.String("error", err.Error()))
			continue
		}
		current[key] = to
		stats.Upserted++
	}

	if err := s.SaveSnapshot(ctx); err != nil {
		return stats, fmt.Errorf("terms: rewrite snapshot: %w", err)
	}

	s.logger.Info("term store reconciled",
		slog.String("collection", s.collection),
		slog.Int("checked", stats.Checked),
		slog.Int("upserted", stats.Upserted),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("failed", stats.Failed))
	return stats, nil
}

// ReconcileFromSnapshot loads the configured snapshot file and reconciles
// the store against it.
func (s *Store) ReconcileFromSnapshot(ctx context.Context) (ReconcileStats, error) {
	if s.snapshotPath == "" {
		return ReconcileStats{}, fmt.Errorf("terms: no snapshot path configured")
	}
	pairs, err := LoadSnapshot(s.snapshotPath)
	if err != nil {
		return ReconcileStats{}, err
	}
	return s.Reconcile(ctx, pairs)
}
