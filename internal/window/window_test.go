package window

import (
	"reflect"
	"strings"
	"testing"
)

func TestNew_ClampsSize(t *testing.T) {
	w := New(0)
	if w.Size() != 1 {
		t.Errorf("expected size 1, got %d", w.Size())
	}
}

func TestAppend_EvictsOldest(t *testing.T) {
	w := New(2)
	w.Append(Entry{Source: "a", Target: "A"})
	w.Append(Entry{Source: "b", Target: "B"})
	w.Append(Entry{Source: "c", Target: "C"})

	got := w.Entries()
	want := []Entry{{"b", "B"}, {"c", "C"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
	if w.Len() != 2 {
		t.Errorf("expected len 2, got %d", w.Len())
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	w := New(3)
	w.Append(Entry{Source: "a", Target: "A"})

	got := w.Entries()
	got[0].Target = "mutated"

	if w.Entries()[0].Target != "A" {
		t.Error("Entries() must not expose the internal buffer")
	}
}

func qualifies(source, translated string) bool {
	trimmed := strings.TrimSpace(source)
	return trimmed != "" && trimmed != "***" && !strings.HasPrefix(translated, "[X] ")
}

func TestRebuild_MatchesLiveWindow(t *testing.T) {
	source := []string{"one", "", "two", "***", "three", "four", "", "five"}
	translated := []string{"1", "", "[X] two", "***", "3", "4", "", "5"}

	for size := 1; size <= 4; size++ {
		live := New(size)
		for k := 0; k <= len(source); k++ {
			rebuilt := Rebuild(translated[:k], source, size, qualifies)
			if !reflect.DeepEqual(rebuilt.Entries(), live.Entries()) {
				t.Fatalf("size=%d cursor=%d: rebuilt %v, live %v", size, k, rebuilt.Entries(), live.Entries())
			}
			if k < len(source) && qualifies(source[k], translated[k]) {
				live.Append(Entry{Source: strings.TrimSpace(source[k]), Target: translated[k]})
			}
		}
	}
}

func TestRebuild_TrimsSource(t *testing.T) {
	w := Rebuild([]string{"Hi"}, []string{"  hello  "}, 2, qualifies)
	got := w.Entries()
	if len(got) != 1 || got[0].Source != "hello" {
		t.Errorf("expected trimmed source, got %v", got)
	}
}

func TestRebuild_CheckpointLongerThanSource(t *testing.T) {
	w := Rebuild([]string{"A", "B", "C"}, []string{"a"}, 5, qualifies)
	if w.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", w.Len())
	}
}
