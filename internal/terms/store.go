// Package terms is the embedding-indexed store of term pairs that keeps
// character names and domain vocabulary consistent across chapters.
//
// Entries live in SQLite keyed by (collection, normalized source term). Each
// row carries the embedding of its source term; Search ranks rows by cosine
// similarity to the embedded query. A JSON snapshot of the collection is kept
// next to the workspace as a recovery and audit copy.
package terms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/noveltran/internal"
)

var (
	// ErrEmbeddingFailure means the embedding provider produced no vector.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrEmptyTerm rejects pairs whose source or target is blank.
	ErrEmptyTerm = errors.New("empty term")
)

// DefaultCollection is used when Options.Collection is empty.
const DefaultCollection = "keywords"

// Embedder turns text into a semantic vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options configures a Store.
type Options struct {
	// Collection scopes the store to one logical term set (usually one novel).
	Collection string
	// SnapshotPath, when set, is rewritten by SaveSnapshot and Reconcile.
	SnapshotPath string
	Logger       *slog.Logger
}

type Store struct {
	db           *sql.DB
	embedder     Embedder
	collection   string
	snapshotPath string
	logger       *slog.Logger
}

// New opens (or creates) the term database at dbPath.
func New(dbPath string, embedder Embedder, opts Options) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("terms: embedder is required")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer; keeps modernc from opening parallel connections
	db.SetMaxOpenConns(1)

	s := &Store{
		db:           db,
		embedder:     embedder,
		collection:   opts.Collection,
		snapshotPath: opts.SnapshotPath,
		logger:       opts.Logger,
	}
	if s.collection == "" {
		s.collection = DefaultCollection
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS terms (
		collection TEXT NOT NULL,
		term_key TEXT NOT NULL,
		source_term TEXT NOT NULL,
		target_term TEXT NOT NULL,
		embedding BLOB NOT NULL,
		dims INTEGER NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, term_key)
	);

	CREATE INDEX IF NOT EXISTS idx_terms_collection ON terms(collection);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Collection returns the collection this store reads and writes.
func (s *Store) Collection() string { return s.collection }

// NormalizeKey is the identity of a term: NFC, trimmed, Unicode case-folded.
func NormalizeKey(from string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(from)))
}

// Upsert embeds term.From and writes the pair under its normalized key,
// replacing any entry with the same key.
func (s *Store) Upsert(ctx context.Context, term internal.TermPair) error {
	from := norm.NFC.String(strings.TrimSpace(term.From))
	to := strings.TrimSpace(term.To)
	key := NormalizeKey(from)
	if key == "" || to == "" {
		return fmt.Errorf("%w: %q → %q", ErrEmptyTerm, term.From, term.To)
	}

	vec, err := s.embedder.Embed(ctx, from)
	if err != nil {
		if errors.Is(err, ErrEmbeddingFailure) {
			return err
		}
		return fmt.Errorf("%w: %q: %w", ErrEmbeddingFailure, from, err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("%w: no vector for %q", ErrEmbeddingFailure, from)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO terms (collection, term_key, source_term, target_term, embedding, dims, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, term_key) DO UPDATE SET
			source_term = excluded.source_term,
			target_term = excluded.target_term,
			embedding   = excluded.embedding,
			dims        = excluded.dims,
			updated_at  = excluded.updated_at`,
		s.collection, key, from, to, encodeVector(vec), len(vec), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("terms: upsert %q: %w", from, err)
	}
	return nil
}

type row struct {
	pair internal.TermPair
	vec  []float32
}

func (s *Store) loadRows(ctx context.Context) ([]row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_term, target_term, embedding FROM terms WHERE collection = ?`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("terms: query: %w", err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		var blob []byte
		if err := rows.Scan(&r.pair.From, &r.pair.To, &blob); err != nil {
			return nil, fmt.Errorf("terms: scan: %w", err)
		}
		r.vec = decodeVector(blob)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Search returns up to limit pairs ranked by similarity to query, most
// similar first. An empty store returns an empty slice without calling the
// embedder.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]internal.TermPair, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []internal.TermPair{}, nil
	}

	rows, err := s.loadRows(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []internal.TermPair{}, nil
	}

	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: search query: %w", ErrEmbeddingFailure, err)
	}
	if len(qvec) == 0 {
		return nil, fmt.Errorf("%w: no vector for search query", ErrEmbeddingFailure)
	}

	type scored struct {
		pair  internal.TermPair
		score float64
	}
	candidates := make([]scored, 0, len(rows))
	for _, r := range rows {
		if len(r.vec) != len(qvec) {
			// written with a different embedding model
			continue
		}
		candidates = append(candidates, scored{pair: r.pair, score: cosine(qvec, r.vec)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].pair.From < candidates[j].pair.From
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]internal.TermPair, len(candidates))
	for i, c := range candidates {
		out[i] = c.pair
	}
	return out, nil
}

// ExportAll returns every pair of the collection ordered by source term.
func (s *Store) ExportAll(ctx context.Context) ([]internal.TermPair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_term, target_term FROM terms WHERE collection = ?`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("terms: export: %w", err)
	}
	defer rows.Close()

	out := []internal.TermPair{}
	for rows.Next() {
		var p internal.TermPair
		if err := rows.Scan(&p.From, &p.To); err != nil {
			return nil, fmt.Errorf("terms: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortPairs(out)
	return out, nil
}

// Count returns the number of pairs in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM terms WHERE collection = ?`, s.collection).Scan(&n)
	return n, err
}

// Delete removes the pair whose normalized key matches from. It reports
// whether a row was removed. The pipeline never deletes; this is for
// operators correcting a bad term by hand.
func (s *Store) Delete(ctx context.Context, from string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM terms WHERE collection = ? AND term_key = ?`, s.collection, NormalizeKey(from))
	if err != nil {
		return false, fmt.Errorf("terms: delete %q: %w", from, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SortPairs orders pairs ascending by From, then To.
func SortPairs(pairs []internal.TermPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].From != pairs[j].From {
			return pairs[i].From < pairs[j].From
		}
		return pairs[i].To < pairs[j].To
	})
}
