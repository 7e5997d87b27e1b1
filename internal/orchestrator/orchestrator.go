// Package orchestrator drives the chapter pipeline: it maintains the chapter
// list cache, makes sure raw text is on disk and hands each chapter to the
// translation state machine, strictly one after another.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/valpere/noveltran/internal"
	"github.com/valpere/noveltran/internal/chapter"
	"github.com/valpere/noveltran/internal/source"
	"github.com/valpere/noveltran/internal/storage"
)

// ErrChapterCache means chapters.json exists but cannot be read or parsed.
var ErrChapterCache = errors.New("chapter cache unreadable")

// ChapterTranslator runs one chapter to completion.
type ChapterTranslator interface {
	Translate(ctx context.Context, index int, text string) (*chapter.Outcome, error)
}

type OrchestratorConfig struct {
	// From and To bound the chapter indices processed; zero means unbounded.
	From int
	To   int
}

// Summary counts what a Run did.
type Summary struct {
	RunID             string
	Chapters          int
	Finalized         int
	AlreadyFinalized  int
	Skipped           int
	Failed            int
	LinesTranslated   int
	LinesUntranslated int
	Aborted           bool
	Duration          time.Duration
}

type Orchestrator struct {
	source   source.Source
	files    *storage.Layout
	chapters ChapterTranslator
	config   OrchestratorConfig
	logger   *slog.Logger
}

func New(src source.Source, files *storage.Layout, chapters ChapterTranslator, config OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		source:   src,
		files:    files,
		chapters: chapters,
		config:   config,
		logger:   logger,
	}
}

// Chapters returns the chapter list. A cached list is returned as is unless
// refresh is set, in which case newly published chapters are appended; cached
// records are never altered. Without a cache the source is listed and the
// result saved.
func (o *Orchestrator) Chapters(ctx context.Context, refresh bool) ([]internal.ChapterRecord, error) {
	cached, err := o.files.LoadChapters()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		cached = nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrChapterCache, err)
	case !refresh:
		o.logger.Debug("using cached chapter list", "chapters", len(cached))
		return cached, nil
	}

	if o.source == nil {
		if cached != nil {
			return cached, nil
		}
		return nil, fmt.Errorf("no chapter cache and no source configured")
	}

	listed, err := o.source.List(ctx)
	if err != nil {
		if cached != nil {
			o.logger.Warn("chapter refresh failed, using cache", "error", err)
			return cached, nil
		}
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}

	merged, added := merge(cached, listed)
	o.logger.Info("chapter list updated", "chapters", len(merged), "new", added)
	if cached == nil || added > 0 {
		if err := o.files.SaveChapters(merged); err != nil {
			o.logger.Warn("failed to save chapter cache", "error", err)
		}
	}
	return merged, nil
}

// merge appends listed records whose index is not cached yet.
func merge(cached, listed []internal.ChapterRecord) ([]internal.ChapterRecord, int) {
	seen := make(map[int]bool, len(cached))
	out := make([]internal.ChapterRecord, 0, len(cached)+len(listed))
	for _, rec := range cached {
		seen[rec.Index] = true
		out = append(out, rec)
	}
	added := 0
	for _, rec := range listed {
		if seen[rec.Index] {
			continue
		}
		seen[rec.Index] = true
		out = append(out, rec)
		added++
	}
	storage.SortChapters(out)
	return out, added
}

func (o *Orchestrator) inRange(index int) bool {
	if o.config.From > 0 && index < o.config.From {
		return false
	}
	if o.config.To > 0 && index > o.config.To {
		return false
	}
	return true
}

// Run processes records in ascending index order. It stops early and returns
// chapter.ErrProviderOutage when the kill switch trips, or the context error
// when ctx is cancelled. Any other per-chapter failure is logged and the
// chapter skipped.
func (o *Orchestrator) Run(ctx context.Context, runID string, records []internal.ChapterRecord) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: runID}
	defer func() { summary.Duration = time.Since(start) }()

	ordered := make([]internal.ChapterRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	for _, rec := range ordered {
		if !o.inRange(rec.Index) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Chapters++

		logger := o.logger.With("chapter", rec.Index)

		text, ok := o.rawText(ctx, rec, logger)
		if !ok {
			summary.Skipped++
			continue
		}

		out, err := o.chapters.Translate(ctx, rec.Index, text)
		if out != nil {
			summary.LinesTranslated += out.Translated
			summary.LinesUntranslated += out.Untranslated
		}
		switch {
		case errors.Is(err, chapter.ErrProviderOutage):
			summary.Aborted = true
			return summary, err
		case err != nil && ctx.Err() != nil:
			return summary, ctx.Err()
		case err != nil:
			logger.Error("chapter failed", "error", err)
			summary.Failed++
		case out.AlreadyFinalized:
			summary.AlreadyFinalized++
		default:
			summary.Finalized++
		}
	}

	return summary, nil
}

// rawText returns the chapter's raw text, fetching and caching it when it is
// not on disk. Finalized chapters need no text.
func (o *Orchestrator) rawText(ctx context.Context, rec internal.ChapterRecord, logger *slog.Logger) (string, bool) {
	if o.files.HasTranslated(rec.Index) {
		return "", true
	}

	if o.files.HasRaw(rec.Index) {
		text, err := o.files.ReadRaw(rec.Index)
		if err != nil {
			logger.Error("failed to read raw text, skipping", "error", err)
			return "", false
		}
		return text, true
	}

	if o.source == nil {
		logger.Warn("raw text missing and no source configured, skipping")
		return "", false
	}

	logger.Info("fetching chapter", "source", rec.Source)
	text, err := o.source.Fetch(ctx, rec)
	if err != nil {
		logger.Error("fetch failed, skipping", "error", err)
		return "", false
	}
	if err := o.files.WriteRaw(rec.Index, text); err != nil {
		logger.Warn("failed to cache raw text", "error", err)
	}
	return text, true
}
