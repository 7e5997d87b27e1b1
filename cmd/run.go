/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/noveltran/internal/chapter"
	"github.com/valpere/noveltran/internal/orchestrator"
)

var (
	runRefresh bool
	runFrom    int
	runTo      int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch and translate chapters",
	Long: `Fetch any chapters not yet on disk and translate them in ascending order.

Each line is checkpointed as soon as it is translated. Interrupting the run
(Ctrl-C) loses at most the line in flight; the next run resumes from the
checkpoint. Chapters already translated are skipped.

The run stops with a non-zero exit code when the translation provider fails
repeatedly within one chapter.

Example:
  noveltran run --refresh
  noveltran run --from 10 --to 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runID := uuid.New().String()
		logger = logger.With("run_id", runID)

		files, err := openWorkspace(cfg)
		if err != nil {
			return err
		}

		store, err := openTerms(cfg, files, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		// the snapshot may hold terms a crashed run wrote before the database
		if _, err := store.ReconcileFromSnapshot(ctx); err != nil {
			logger.Warn("term snapshot reconciliation failed", "error", err)
		}

		tr, closeTr, err := buildTranslator(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeTr()

		src, err := buildSource(cfg, logger)
		if err != nil {
			return err
		}

		machine := chapter.New(cfg.Translation, tr, store, files, logger)
		orch := orchestrator.New(src, files, machine, orchestrator.OrchestratorConfig{
			From: runFrom,
			To:   runTo,
		}, logger)

		records, err := orch.Chapters(ctx, runRefresh)
		if err != nil {
			return err
		}

		logger.Info("run started",
			"chapters", len(records),
			"provider", cfg.Provider.Provider,
			"model", cfg.Provider.Model,
			"source_lang", cfg.Translation.SourceLang,
			"target_lang", cfg.Translation.TargetLang)

		summary, err := orch.Run(ctx, runID, records)
		if summary != nil {
			printSummary(cmd.OutOrStdout(), summary)
		}
		switch {
		case errors.Is(err, chapter.ErrProviderOutage):
			return fmt.Errorf("run aborted: %w", err)
		case err != nil:
			return err
		}
		return nil
	},
}

func printSummary(w io.Writer, s *orchestrator.Summary) {
	fmt.Fprintf(w, "Run %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Chapters considered: %d\n", s.Chapters)
	fmt.Fprintf(w, "  translated now:     %d\n", s.Finalized)
	fmt.Fprintf(w, "  already translated: %d\n", s.AlreadyFinalized)
	fmt.Fprintf(w, "  skipped:            %d\n", s.Skipped)
	fmt.Fprintf(w, "  failed:             %d\n", s.Failed)
	fmt.Fprintf(w, "Lines translated: %d, untranslated: %d\n", s.LinesTranslated, s.LinesUntranslated)
	if s.Aborted {
		fmt.Fprintln(w, "Aborted: translation provider unavailable")
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runRefresh, "refresh", false, "Check the source for newly published chapters")
	runCmd.Flags().IntVar(&runFrom, "from", 0, "First chapter index to process (0 = no lower bound)")
	runCmd.Flags().IntVar(&runTo, "to", 0, "Last chapter index to process (0 = no upper bound)")
}
