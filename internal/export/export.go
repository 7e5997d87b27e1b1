// Package export assembles finalized chapters into a single book file.
package export

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/valpere/noveltran/internal"
	"github.com/valpere/noveltran/internal/storage"
)

// Formats lists the accepted values of Options.Format.
var Formats = []string{"md", "html", "txt"}

type Options struct {
	Title  string
	Format string
	// From and To bound the chapter indices exported; zero means unbounded.
	From int
	To   int
}

// Stats reports which chapters made it into the book.
type Stats struct {
	Exported []int
	Missing  []int
}

// Book renders the finalized chapters among records in ascending order.
// Chapters without finalized output are listed in Stats.Missing and left out.
func Book(files *storage.Layout, records []internal.ChapterRecord, opts Options) ([]byte, Stats, error) {
	var stats Stats
	ordered := make([]internal.ChapterRecord, len(records))
	copy(ordered, records)
	storage.SortChapters(ordered)

	var md bytes.Buffer
	var txt bytes.Buffer
	if opts.Title != "" {
		fmt.Fprintf(&md, "# %s\n\n", opts.Title)
		fmt.Fprintf(&txt, "%s\n\n", opts.Title)
	}

	for _, rec := range ordered {
		if (opts.From > 0 && rec.Index < opts.From) || (opts.To > 0 && rec.Index > opts.To) {
			continue
		}
		if !files.HasTranslated(rec.Index) {
			stats.Missing = append(stats.Missing, rec.Index)
			continue
		}
		text, err := files.ReadTranslated(rec.Index)
		if err != nil {
			return nil, stats, fmt.Errorf("chapter %d: %w", rec.Index, err)
		}
		stats.Exported = append(stats.Exported, rec.Index)

		fmt.Fprintf(&md, "## Chapter %d\n\n", rec.Index)
		fmt.Fprintf(&txt, "Chapter %d\n\n", rec.Index)
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			md.WriteString(line)
			md.WriteString("\n\n")
			txt.WriteString(line)
			txt.WriteString("\n\n")
		}
	}

	switch opts.Format {
	case "", "md":
		return md.Bytes(), stats, nil
	case "txt":
		return txt.Bytes(), stats, nil
	case "html":
		return []byte(htmlDocument(opts.Title, ToHTML(md.Bytes()))), stats, nil
	default:
		return nil, stats, fmt.Errorf("unknown export format: %q", opts.Format)
	}
}

// ToHTML renders Markdown to an HTML fragment.
func ToHTML(md []byte) string {
	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	}
	renderer := html.NewRenderer(opts)
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse(md)
	return string(markdown.Render(doc, renderer))
}

func htmlDocument(title, body string) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", stdhtml.EscapeString(title))
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(body)
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}
