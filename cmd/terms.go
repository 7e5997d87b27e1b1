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
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/noveltran/internal"
	"github.com/valpere/noveltran/internal/terms"
)

var (
	termsSearchLimit   int
	termsExportOutput  string
	termsReconcileFile string
)

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Manage the term store",
	Long: `List, add, delete, search and export the term pairs that keep names and
recurring vocabulary consistent across chapters.

Every change is mirrored to the terms.json snapshot in the work directory.`,
}

// withTerms opens the workspace and term store for the duration of fn.
func withTerms(cmd *cobra.Command, fn func(store *terms.Store) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	files, err := openWorkspace(cfg)
	if err != nil {
		return err
	}
	store, err := openTerms(cfg, files, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func printPairs(pairs []internal.TermPair) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FROM\tTO")
	for _, p := range pairs {
		fmt.Fprintf(w, "%s\t%s\n", p.From, p.To)
	}
	return w.Flush()
}

var termsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all term pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTerms(cmd, func(store *terms.Store) error {
			pairs, err := store.ExportAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list terms: %w", err)
			}
			if len(pairs) == 0 {
				fmt.Println("Term store is empty.")
				return nil
			}
			return printPairs(pairs)
		})
	},
}

var termsAddCmd = &cobra.Command{
	Use:   "add <from> <to>",
	Short: "Add or replace a term pair",
	Long: `Add a term pair, replacing any pair whose source term matches after
normalization (Unicode NFC, trimmed, case-folded).

Example:
  noveltran terms add "김독자" "Kim Dokja"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTerms(cmd, func(store *terms.Store) error {
			ctx := cmd.Context()
			if err := store.Upsert(ctx, internal.TermPair{From: args[0], To: args[1]}); err != nil {
				return fmt.Errorf("failed to add term: %w", err)
			}
			if err := store.SaveSnapshot(ctx); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			fmt.Printf("Added: %q → %q\n", args[0], args[1])
			return nil
		})
	},
}

var termsDeleteCmd = &cobra.Command{
	Use:   "delete <from>",
	Short: "Delete a term pair by its source term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTerms(cmd, func(store *terms.Store) error {
			ctx := cmd.Context()
			removed, err := store.Delete(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to delete term: %w", err)
			}
			if !removed {
				return fmt.Errorf("term not found: %q", args[0])
			}
			if err := store.SaveSnapshot(ctx); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			fmt.Printf("Deleted: %q\n", args[0])
			return nil
		})
	},
}

var termsSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Show the term pairs most similar to text",
	Long: `Rank term pairs by embedding similarity to text, the same lookup the
translator performs for every line.

Example:
  noveltran terms search "독자는 고개를 들었다" --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTerms(cmd, func(store *terms.Store) error {
			pairs, err := store.Search(cmd.Context(), args[0], termsSearchLimit)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if len(pairs) == 0 {
				fmt.Println("No matching terms.")
				return nil
			}
			return printPairs(pairs)
		})
	},
}

var termsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all term pairs as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTerms(cmd, func(store *terms.Store) error {
			pairs, err := store.ExportAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to export terms: %w", err)
			}
			if termsExportOutput != "" {
				if err := terms.WriteSnapshot(termsExportOutput, pairs); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
				fmt.Printf("Exported %d terms to %s\n", len(pairs), termsExportOutput)
				return nil
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pairs)
		})
	},
}

var termsReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-apply a snapshot to the term store",
	Long: `Upsert every pair from a snapshot that is missing from the store or maps
to a different target, then rewrite terms.json from the store.

Without --file the work directory's terms.json is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTerms(cmd, func(store *terms.Store) error {
			ctx := cmd.Context()
			var (
				stats terms.ReconcileStats
				err   error
			)
			if termsReconcileFile != "" {
				pairs, lerr := terms.LoadSnapshot(termsReconcileFile)
				if lerr != nil {
					return lerr
				}
				stats, err = store.Reconcile(ctx, pairs)
			} else {
				stats, err = store.ReconcileFromSnapshot(ctx)
			}
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}
			fmt.Printf("Checked %d, upserted %d, unchanged %d, failed %d\n",
				stats.Checked, stats.Upserted, stats.Unchanged, stats.Failed)
			return nil
		})
	},
}

var termsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show term store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTerms(cmd, func(store *terms.Store) error {
			n, err := store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to count terms: %w", err)
			}
			fmt.Printf("Collection: %s\n", store.Collection())
			fmt.Printf("Terms:      %d\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(termsCmd)

	termsSearchCmd.Flags().IntVarP(&termsSearchLimit, "limit", "n", 20, "Maximum number of pairs to show")
	termsExportCmd.Flags().StringVarP(&termsExportOutput, "output", "o", "", "Write to file instead of stdout")
	termsReconcileCmd.Flags().StringVarP(&termsReconcileFile, "file", "f", "", "Snapshot file to apply")

	termsCmd.AddCommand(termsListCmd)
	termsCmd.AddCommand(termsAddCmd)
	termsCmd.AddCommand(termsDeleteCmd)
	termsCmd.AddCommand(termsSearchCmd)
	termsCmd.AddCommand(termsExportCmd)
	termsCmd.AddCommand(termsReconcileCmd)
	termsCmd.AddCommand(termsStatsCmd)
}
