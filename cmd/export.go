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

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/cobra"

	"github.com/valpere/noveltran/internal/export"
	"github.com/valpere/noveltran/internal/storage"
)

var (
	exportFormat string
	exportOutput string
	exportTitle  string
	exportFrom   int
	exportTo     int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Assemble translated chapters into one book file",
	Long: `Concatenate the translated chapters, in index order, into a single
Markdown, HTML or plain text document. Chapters not yet translated are
skipped and reported.

Example:
  noveltran export --format html --title "My Novel" -o book.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		formats := make([]interface{}, len(export.Formats))
		for i, f := range export.Formats {
			formats[i] = f
		}
		if err := validation.Validate(exportFormat, validation.In(formats...)); err != nil {
			return fmt.Errorf("--format: %w", err)
		}

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		files := storage.New(cfg.WorkDir)

		records, err := files.LoadChapters()
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no chapter list in %s; run \"noveltran chapters list\" first", cfg.WorkDir)
		}
		if err != nil {
			return fmt.Errorf("failed to read chapter list: %w", err)
		}

		book, stats, err := export.Book(files, records, export.Options{
			Title:  exportTitle,
			Format: exportFormat,
			From:   exportFrom,
			To:     exportTo,
		})
		if err != nil {
			return err
		}
		if len(stats.Missing) > 0 {
			logger.Warn("chapters not translated yet, left out", "chapters", stats.Missing)
		}

		if exportOutput == "" {
			_, err := os.Stdout.Write(book)
			return err
		}
		if err := storage.WriteFileAtomic(exportOutput, book); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Exported %d chapters to %s\n", len(stats.Exported), exportOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Output format: md, html, txt")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringVar(&exportTitle, "title", "", "Book title")
	exportCmd.Flags().IntVar(&exportFrom, "from", 0, "First chapter index (0 = no lower bound)")
	exportCmd.Flags().IntVar(&exportTo, "to", 0, "Last chapter index (0 = no upper bound)")
}
