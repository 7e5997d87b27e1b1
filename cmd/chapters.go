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
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/noveltran/internal"
	"github.com/valpere/noveltran/internal/orchestrator"
	"github.com/valpere/noveltran/internal/storage"
)

var chaptersRefresh bool

var chaptersCmd = &cobra.Command{
	Use:   "chapters",
	Short: "Inspect the chapter list",
}

var chaptersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known chapters and their progress",
	Long: `List every chapter in the cached chapter list with its progress:
translated, in progress (lines checkpointed), fetched, or pending.

With --refresh the source is checked for new chapters first; without a cache
the source is always listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		files, err := openWorkspace(cfg)
		if err != nil {
			return err
		}
		src, err := buildSource(cfg, logger)
		if err != nil {
			return err
		}

		orch := orchestrator.New(src, files, nil, orchestrator.OrchestratorConfig{}, logger)
		records, err := orch.Chapters(cmd.Context(), chaptersRefresh)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No chapters found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tSTATUS\tSOURCE")
		for _, rec := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\n", rec.Index, progress(files, rec), rec.Source)
		}
		return w.Flush()
	},
}

func progress(files *storage.Layout, rec internal.ChapterRecord) string {
	switch {
	case files.HasTranslated(rec.Index):
		return "translated"
	case files.HasCheckpoint(rec.Index):
		lines, err := files.LoadCheckpoint(rec.Index)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return "checkpoint unreadable"
		}
		return fmt.Sprintf("in progress (%d lines)", len(lines))
	case files.HasRaw(rec.Index):
		return "fetched"
	default:
		return "pending"
	}
}

func init() {
	rootCmd.AddCommand(chaptersCmd)

	chaptersListCmd.Flags().BoolVar(&chaptersRefresh, "refresh", false, "Check the source for newly published chapters")

	chaptersCmd.AddCommand(chaptersListCmd)
}
