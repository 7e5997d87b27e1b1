// Package source lists chapters and fetches their raw text, either from a
// web novel site or from a local directory.
package source

import (
	"context"
	"errors"

	"github.com/valpere/noveltran/internal"
)

var (
	// ErrHTTPStatus is returned for any non-2xx response.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrContentNotFound means the chapter page had no content container.
	ErrContentNotFound = errors.New("chapter content not found")
)

// Source is the chapter listing and extraction collaborator.
type Source interface {
	// List returns every known chapter, ordered by index.
	List(ctx context.Context) ([]internal.ChapterRecord, error)
	// Fetch returns the raw text of one chapter, paragraphs separated by a
	// blank line.
	Fetch(ctx context.Context, rec internal.ChapterRecord) (string, error)
}
