package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/valpere/noveltran/internal"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// novelSite serves two listing pages, an empty third page and chapter pages.
func novelSite(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/toc", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `<ul class="chapters"><li><a href="/chapter/2">Chapter 2</a></li><li><a href="/chapter/1">Chapter 1</a></li></ul>`)
		case "2":
			fmt.Fprint(w, `<ul class="chapters"><li><a href="/chapter/3">Chapter 3</a></li><li><a href="/chapter/1">Chapter 1</a></li></ul>`)
		default:
			fmt.Fprint(w, `<ul class="chapters"></ul>`)
		}
	})
	mux.HandleFunc("/chapter/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/chapter/1":
			fmt.Fprint(w, `<html><body><div id="content">
<p>First   line.</p>
<div class="ads">Sponsored!</div>
<p>***</p>
<p>Second<br>third</p>
<script>var x = 1;</script>
<p>  </p>
</div></body></html>`)
		case "/chapter/2":
			fmt.Fprint(w, `<html><body><div id="other">nothing</div></body></html>`)
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &hits
}

func newSiteSource(t *testing.T, server *httptest.Server) *HTTPSource {
	t.Helper()
	src, err := NewHTTPSource(HTTPConfig{
		ListURL:         server.URL + "/toc?page={page}",
		LinkSelector:    "ul.chapters a",
		IndexPattern:    `/chapter/(\d+)`,
		ContentSelector: "#content",
		RemoveSelectors: []string{".ads"},
	}, quietLogger())
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	return src
}

func TestHTTPSource_List(t *testing.T) {
	server, hits := novelSite(t)
	src := newSiteSource(t, server)

	records, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 chapters, got %v", records)
	}
	for i, rec := range records {
		if rec.Index != i+1 {
			t.Errorf("records[%d].Index = %d", i, rec.Index)
		}
		if rec.Source != fmt.Sprintf("%s/chapter/%d", server.URL, i+1) {
			t.Errorf("records[%d].Source = %q", i, rec.Source)
		}
	}
	// pages 1, 2 and the empty page 3
	if hits.Load() != 3 {
		t.Errorf("expected 3 listing requests, got %d", hits.Load())
	}
}

func TestHTTPSource_Fetch(t *testing.T) {
	server, _ := novelSite(t)
	src := newSiteSource(t, server)

	text, err := src.Fetch(context.Background(), internal.ChapterRecord{Index: 1, Source: server.URL + "/chapter/1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "First line.\n\n***\n\nSecond\n\nthird"
	if text != want {
		t.Errorf("Fetch() = %q, want %q", text, want)
	}
}

func TestHTTPSource_FetchAttributeAndChildSelectors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body>
<div class="wrap"><article data-role="chapter">
<p>Kept line.</p>
<div data-ad="top"><p>Buy coins!</p></div>
<section><p>Nested line.</p></section>
<aside class="note"><p>Translator note.</p></aside>
</article></div>
<article><p>Sidebar.</p></article>
</body></html>`)
	}))
	t.Cleanup(server.Close)

	src, err := NewHTTPSource(HTTPConfig{
		ListURL:         server.URL,
		LinkSelector:    "a",
		ContentSelector: `div.wrap > article[data-role="chapter"]`,
		RemoveSelectors: []string{"[data-ad]", "article > aside.note"},
	}, quietLogger())
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}

	text, err := src.Fetch(context.Background(), internal.ChapterRecord{Index: 1, Source: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Kept line.\n\nNested line."
	if text != want {
		t.Errorf("Fetch() = %q, want %q", text, want)
	}
}

func TestHTTPSource_FetchMissingContainer(t *testing.T) {
	server, _ := novelSite(t)
	src := newSiteSource(t, server)

	_, err := src.Fetch(context.Background(), internal.ChapterRecord{Index: 2, Source: server.URL + "/chapter/2"})
	if !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
}

func TestHTTPSource_FetchHTTPError(t *testing.T) {
	server, _ := novelSite(t)
	src := newSiteSource(t, server)

	_, err := src.Fetch(context.Background(), internal.ChapterRecord{Index: 9, Source: server.URL + "/chapter/9"})
	if !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("expected ErrHTTPStatus, got %v", err)
	}
}

func TestHTTPSource_SinglePageListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="toc"><a href="read?no=10">Episode 10</a><a href="read?no=11">Episode 11</a><a href="/about">About</a></div>`)
	}))
	defer server.Close()

	src, err := NewHTTPSource(HTTPConfig{
		ListURL:         server.URL + "/toc",
		LinkSelector:    ".toc a",
		IndexPattern:    `Episode (\d+)`,
		ContentSelector: "#content",
	}, quietLogger())
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}

	records, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[0].Index != 10 || !strings.HasSuffix(records[1].Source, "/read?no=11") {
		t.Errorf("unexpected records %v", records)
	}
}

func TestHTTPSource_ListFirstPageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	src, err := NewHTTPSource(HTTPConfig{
		ListURL:         server.URL + "/toc/{page}",
		LinkSelector:    "a",
		ContentSelector: "#content",
	}, quietLogger())
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}

	if _, err := src.List(context.Background()); !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("expected ErrHTTPStatus, got %v", err)
	}
}

func TestNewHTTPSource_Validation(t *testing.T) {
	base := HTTPConfig{ListURL: "http://example.com", LinkSelector: "a", ContentSelector: "#c"}

	tests := []struct {
		name   string
		mutate func(*HTTPConfig)
	}{
		{"missing list url", func(c *HTTPConfig) { c.ListURL = "" }},
		{"bad link selector", func(c *HTTPConfig) { c.LinkSelector = "" }},
		{"bad content selector", func(c *HTTPConfig) { c.ContentSelector = "div." }},
		{"bad index pattern", func(c *HTTPConfig) { c.IndexPattern = "(" }},
		{"index pattern without group", func(c *HTTPConfig) { c.IndexPattern = `\d+` }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if _, err := NewHTTPSource(cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}
