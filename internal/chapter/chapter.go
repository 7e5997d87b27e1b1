// Package chapter translates one chapter line by line, checkpointing after
// every line so an interrupted run resumes exactly where it stopped.
package chapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/valpere/noveltran/internal"
	"github.com/valpere/noveltran/internal/storage"
	"github.com/valpere/noveltran/internal/translator"
	"github.com/valpere/noveltran/internal/window"
)

// ErrProviderOutage is returned once FailureThreshold consecutive lines have
// exhausted their retries. It stops the whole run, not just the chapter.
var ErrProviderOutage = errors.New("translation provider outage")

// UntranslatedPrefix starts the placeholder written for a line whose
// translation attempts were all exhausted.
const UntranslatedPrefix = "[UNTRANSLATED] "

// decorationRe matches scene breaks and spacer lines that are copied verbatim.
var decorationRe = regexp.MustCompile(`^[ .…\r*]+$`)

// IsDecoration reports whether line consists only of spaces, dots,
// ellipses, carriage returns or asterisks.
func IsDecoration(line string) bool {
	return decorationRe.MatchString(line)
}

// Untranslated returns the placeholder for a source line.
func Untranslated(line string) string {
	return UntranslatedPrefix + strings.TrimSpace(line)
}

// contributes reports whether an output line was added to the live context
// window: the source needed a model call and the call succeeded.
func contributes(source, translated string) bool {
	if IsDecoration(source) || strings.TrimSpace(source) == "" {
		return false
	}
	return translated != Untranslated(source)
}

// State is the lifecycle position of one chapter.
type State int

const (
	NotStarted State = iota
	InProgress
	Finalized
	Aborted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Finalized:
		return "finalized"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TermStore is the subset of the term store the machine needs.
type TermStore interface {
	Search(ctx context.Context, query string, limit int) ([]internal.TermPair, error)
	Upsert(ctx context.Context, term internal.TermPair) error
	SaveSnapshot(ctx context.Context) error
}

// Config holds the per-run translation parameters.
type Config struct {
	SourceLang string `mapstructure:"source_lang" yaml:"source_lang"`
	TargetLang string `mapstructure:"target_lang" yaml:"target_lang"`
	// WindowSize is W: context window capacity and lookahead length.
	WindowSize int `mapstructure:"window_size" yaml:"window_size"`
	// TermLimit caps the terms retrieved for each line.
	TermLimit int `mapstructure:"term_limit" yaml:"term_limit"`
	// MaxAttempts is the total number of translation attempts per line.
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	LineDelay   time.Duration `mapstructure:"line_delay" yaml:"line_delay"`
	// FailureThreshold consecutive exhausted lines trip the kill switch.
	FailureThreshold int `mapstructure:"failure_threshold" yaml:"failure_threshold"`
}

// DefaultConfig returns the stock parameters.
func DefaultConfig() Config {
	return Config{
		WindowSize:       5,
		TermLimit:        20,
		MaxAttempts:      3,
		RetryDelay:       2 * time.Second,
		LineDelay:        500 * time.Millisecond,
		FailureThreshold: 5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WindowSize < 1 {
		c.WindowSize = d.WindowSize
	}
	if c.TermLimit < 1 {
		c.TermLimit = d.TermLimit
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.FailureThreshold < 1 {
		c.FailureThreshold = d.FailureThreshold
	}
	return c
}

// Outcome summarises one Translate call.
type Outcome struct {
	Index        int
	State        State
	Lines        int
	Translated   int
	Untranslated int
	// Resumed is the cursor a checkpoint restored, or -1 for a fresh start.
	Resumed int
	// AlreadyFinalized is set when the output existed before the call.
	AlreadyFinalized bool
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Machine runs the per-chapter state machine. It is not safe for concurrent
// use; chapters are processed one at a time.
type Machine struct {
	cfg        Config
	translator translator.LineTranslator
	terms      TermStore
	files      *storage.Layout
	logger     *slog.Logger
	sleep      SleepFunc
}

func New(cfg Config, tr translator.LineTranslator, terms TermStore, files *storage.Layout, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		cfg:        cfg.withDefaults(),
		translator: tr,
		terms:      terms,
		files:      files,
		logger:     logger,
		sleep:      sleepContext,
	}
}

// SetSleep replaces the delay function.
func (m *Machine) SetSleep(fn SleepFunc) {
	if fn != nil {
		m.sleep = fn
	}
}

// run is the mutable state of one chapter pass.
type run struct {
	index      int
	lines      []string
	translated []string
	window     *window.Window
	breaker    *gobreaker.CircuitBreaker
	outcome    *Outcome
	logger     *slog.Logger
}

// Translate drives chapter index from whatever state it is in to Finalized.
// text is the raw chapter text.
//
// It returns ErrProviderOutage (with Outcome.State Aborted) when the kill
// switch trips, and ctx.Err() if the context is cancelled between lines.
// Other errors mean the finalized output could not be written; the
// checkpoint is kept so a later run resumes.
func (m *Machine) Translate(ctx context.Context, index int, text string) (*Outcome, error) {
	logger := m.logger.With("chapter", index)
	out := &Outcome{Index: index, State: NotStarted, Resumed: -1}

	if m.files.HasTranslated(index) {
		if err := m.files.DeleteCheckpoint(index); err != nil {
			logger.Warn("failed to remove stale checkpoint", "error", err)
		}
		logger.Debug("chapter already finalized")
		out.State = Finalized
		out.AlreadyFinalized = true
		return out, nil
	}

	if text == "" {
		if err := m.files.WriteTranslated(index, ""); err != nil {
			return out, fmt.Errorf("chapter %d: write output: %w", index, err)
		}
		logger.Info("empty chapter finalized")
		out.State = Finalized
		return out, nil
	}

	r := &run{
		index:   index,
		lines:   strings.Split(text, "\n"),
		outcome: out,
		logger:  logger,
	}
	out.Lines = len(r.lines)
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: fmt.Sprintf("chapter-%d", index),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(m.cfg.FailureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Debug("kill switch state change", "from", from.String(), "to", to.String())
		},
	})

	m.resume(r)
	out.State = InProgress

	for i := len(r.translated); i < len(r.lines); i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		if err := m.step(ctx, r, i); err != nil {
			if errors.Is(err, ErrProviderOutage) {
				out.State = Aborted
			}
			return out, err
		}
	}

	if err := m.files.WriteTranslated(index, strings.Join(r.translated, "\n")); err != nil {
		return out, fmt.Errorf("chapter %d: write output: %w", index, err)
	}
	if err := m.files.DeleteCheckpoint(index); err != nil {
		logger.Warn("failed to remove checkpoint", "error", err)
	}

	out.State = Finalized
	logger.Info("chapter finalized",
		"lines", out.Lines,
		"translated", out.Translated,
		"untranslated", out.Untranslated,
	)
	return out, nil
}

// resume restores translated lines and the context window from a checkpoint.
func (m *Machine) resume(r *run) {
	cp, err := m.files.LoadCheckpoint(r.index)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		r.logger.Info("starting chapter", "lines", len(r.lines))
		cp = nil
	case err != nil:
		r.logger.Warn("unreadable checkpoint, starting fresh", "error", err)
		cp = nil
	case len(cp) > len(r.lines):
		r.logger.Warn("checkpoint longer than chapter, starting fresh",
			"checkpoint", len(cp), "lines", len(r.lines))
		cp = nil
	default:
		r.logger.Info("resuming chapter", "cursor", len(cp), "lines", len(r.lines))
		r.outcome.Resumed = len(cp)
	}

	r.translated = make([]string, 0, len(r.lines))
	r.translated = append(r.translated, cp...)
	r.window = window.Rebuild(r.translated, r.lines, m.cfg.WindowSize, contributes)
}

// step produces the output for line i and checkpoints it.
func (m *Machine) step(ctx context.Context, r *run, i int) error {
	raw := r.lines[i]
	trimmed := strings.TrimSpace(raw)

	switch {
	case IsDecoration(raw):
		r.translated = append(r.translated, raw)
		m.checkpoint(r)
		return nil
	case trimmed == "":
		r.translated = append(r.translated, "")
		m.checkpoint(r)
		return nil
	}

	req := translator.Request{
		SourceLang: m.cfg.SourceLang,
		TargetLang: m.cfg.TargetLang,
		Context:    r.window.Entries(),
		Line:       trimmed,
		Lookahead:  m.lookahead(r.lines, i),
	}
	existing, err := m.terms.Search(ctx, trimmed, m.cfg.TermLimit)
	if err != nil {
		r.logger.Warn("term search failed", "line", i, "error", err)
	}
	req.ExistingTerms = existing

	res, err := r.breaker.Execute(func() (interface{}, error) {
		return m.translateLine(ctx, r, i, req)
	})
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	if err != nil {
		r.logger.Error("line left untranslated", "line", i, "error", err)
		r.translated = append(r.translated, Untranslated(raw))
		r.outcome.Untranslated++
	} else {
		result := res.(*translator.Result)
		m.recordTerms(ctx, r, i, result.NewTerms)
		r.window.Append(window.Entry{Source: trimmed, Target: result.TranslatedLine})
		r.translated = append(r.translated, result.TranslatedLine)
		r.outcome.Translated++
	}
	m.checkpoint(r)

	if r.breaker.State() == gobreaker.StateOpen {
		r.logger.Error("too many consecutive failures, stopping",
			"threshold", m.cfg.FailureThreshold, "line", i)
		return fmt.Errorf("chapter %d line %d: %w", r.index, i, ErrProviderOutage)
	}

	if err := m.sleep(ctx, m.cfg.LineDelay); err != nil {
		return err
	}
	return nil
}

// translateLine makes up to MaxAttempts calls, waiting RetryDelay between
// them. Only the final error is returned.
func (m *Machine) translateLine(ctx context.Context, r *run, i int, req translator.Request) (*translator.Result, error) {
	var lastErr error
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := m.sleep(ctx, m.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}

		res, err := m.translator.Translate(ctx, req)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		r.logger.Warn("translation attempt failed",
			"line", i,
			"attempt", attempt,
			"max_attempts", m.cfg.MaxAttempts,
			"error", err,
		)
	}
	return nil, fmt.Errorf("%d attempts exhausted: %w", m.cfg.MaxAttempts, lastErr)
}

// lookahead returns up to W following lines, trimmed, without blanks or
// decoration.
func (m *Machine) lookahead(lines []string, i int) []string {
	end := i + 1 + m.cfg.WindowSize
	if end > len(lines) {
		end = len(lines)
	}
	out := make([]string, 0, m.cfg.WindowSize)
	for _, l := range lines[i+1 : end] {
		if IsDecoration(l) {
			continue
		}
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (m *Machine) recordTerms(ctx context.Context, r *run, i int, terms []internal.TermPair) {
	added := 0
	for _, t := range terms {
		if err := m.terms.Upsert(ctx, t); err != nil {
			r.logger.Warn("failed to store term", "line", i, "from", t.From, "error", err)
			continue
		}
		added++
	}
	if added == 0 {
		return
	}
	r.logger.Debug("stored new terms", "line", i, "count", added)
	if err := m.terms.SaveSnapshot(ctx); err != nil {
		r.logger.Warn("failed to write term snapshot", "error", err)
	}
}

func (m *Machine) checkpoint(r *run) {
	if err := m.files.SaveCheckpoint(r.index, r.translated); err != nil {
		r.logger.Warn("checkpoint write failed", "cursor", len(r.translated), "error", err)
	}
}
