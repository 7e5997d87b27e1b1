package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/valpere/noveltran/internal"
)

var chapterFileRe = regexp.MustCompile(`^(\d+)\.txt$`)

// DirSource reads chapters from numbered text files ("12.txt") in a directory.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (d *DirSource) List(ctx context.Context) ([]internal.ChapterRecord, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}

	var records []internal.ChapterRecord
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := chapterFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		records = append(records, internal.ChapterRecord{Index: n, Source: filepath.Join(d.dir, e.Name())})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Index < records[j].Index })
	return records, nil
}

func (d *DirSource) Fetch(ctx context.Context, rec internal.ChapterRecord) (string, error) {
	data, err := os.ReadFile(rec.Source)
	if err != nil {
		return "", fmt.Errorf("chapter %d: %w", rec.Index, err)
	}
	return string(data), nil
}
