package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/valpere/noveltran/internal"
)

// LoadChapters reads the cached chapter list. A missing cache yields
// ErrNotFound.
func (l *Layout) LoadChapters() ([]internal.ChapterRecord, error) {
	path := l.ChaptersPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read chapter cache: %w", err)
	}

	var records []internal.ChapterRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("storage: parse chapter cache: %w", err)
	}
	SortChapters(records)
	return records, nil
}

// SaveChapters writes the chapter list sorted by index.
func (l *Layout) SaveChapters(records []internal.ChapterRecord) error {
	sorted := make([]internal.ChapterRecord, len(records))
	copy(sorted, records)
	SortChapters(sorted)

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode chapter cache: %w", err)
	}
	return WriteFileAtomic(l.ChaptersPath(), data)
}

// SortChapters orders records by ascending index.
func SortChapters(records []internal.ChapterRecord) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Index < records[j].Index })
}
