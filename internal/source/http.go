package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/valpere/noveltran/internal"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; noveltran/" + internal.Version + ")"

// HTTPConfig describes how to list and extract chapters from a site.
type HTTPConfig struct {
	// ListURL is the table-of-contents URL; "{page}" is replaced by the page
	// number. Without the placeholder a single page is read.
	ListURL   string `mapstructure:"list_url" yaml:"list_url"`
	FirstPage int    `mapstructure:"first_page" yaml:"first_page"`
	MaxPages  int    `mapstructure:"max_pages" yaml:"max_pages"`
	// LinkSelector selects the chapter anchors on a listing page.
	LinkSelector string `mapstructure:"link_selector" yaml:"link_selector"`
	// IndexPattern extracts the chapter number (first capture group) from
	// the link href, falling back to the link text.
	IndexPattern string `mapstructure:"index_pattern" yaml:"index_pattern"`
	// ContentSelector selects the chapter body container.
	ContentSelector string `mapstructure:"content_selector" yaml:"content_selector"`
	// RemoveSelectors are stripped from the body before extraction (ads).
	RemoveSelectors []string      `mapstructure:"remove_selectors" yaml:"remove_selectors"`
	Delay           time.Duration `mapstructure:"delay" yaml:"delay"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent,omitempty"`
}

// HTTPSource scrapes a chapter listing and chapter pages.
type HTTPSource struct {
	cfg     HTTPConfig
	links   cascadia.Selector
	content cascadia.Selector
	remove  []cascadia.Selector
	index   *regexp.Regexp
	limiter *rate.Limiter
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPSource validates cfg and compiles its selectors.
func NewHTTPSource(cfg HTTPConfig, logger *slog.Logger) (*HTTPSource, error) {
	if cfg.ListURL == "" {
		return nil, fmt.Errorf("source: list_url is required")
	}
	if cfg.IndexPattern == "" {
		cfg.IndexPattern = `(\d+)`
	}
	if cfg.FirstPage == 0 {
		cfg.FirstPage = 1
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}

	links, err := compileSelector("link_selector", cfg.LinkSelector)
	if err != nil {
		return nil, err
	}
	content, err := compileSelector("content_selector", cfg.ContentSelector)
	if err != nil {
		return nil, err
	}
	var remove []cascadia.Selector
	for _, s := range append([]string{"script, style, noscript, iframe"}, cfg.RemoveSelectors...) {
		sel, err := compileSelector("remove_selectors", s)
		if err != nil {
			return nil, err
		}
		remove = append(remove, sel)
	}
	index, err := regexp.Compile(cfg.IndexPattern)
	if err != nil {
		return nil, fmt.Errorf("source: index_pattern: %w", err)
	}
	if index.NumSubexp() < 1 {
		return nil, fmt.Errorf("source: index_pattern needs a capture group")
	}

	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}

	return &HTTPSource{
		cfg:     cfg,
		links:   links,
		content: content,
		remove:  remove,
		index:   index,
		limiter: rate.NewLimiter(limit, 1),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

// List walks the listing pages until one yields no new chapter.
func (s *HTTPSource) List(ctx context.Context) ([]internal.ChapterRecord, error) {
	paged := strings.Contains(s.cfg.ListURL, "{page}")
	seen := make(map[int]bool)
	var records []internal.ChapterRecord

	for page := s.cfg.FirstPage; page < s.cfg.FirstPage+s.cfg.MaxPages; page++ {
		pageURL := strings.ReplaceAll(s.cfg.ListURL, "{page}", strconv.Itoa(page))

		doc, err := s.get(ctx, pageURL)
		if err != nil {
			if page > s.cfg.FirstPage && isNotFound(err) {
				break
			}
			return nil, fmt.Errorf("list page %d: %w", page, err)
		}

		added := 0
		for _, a := range s.links.MatchAll(doc) {
			rec, ok := s.record(pageURL, a)
			if !ok || seen[rec.Index] {
				continue
			}
			seen[rec.Index] = true
			records = append(records, rec)
			added++
		}
		s.logger.Debug("listing page read", "page", page, "chapters", added)

		if !paged || added == 0 {
			break
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Index < records[j].Index })
	return records, nil
}

func (s *HTTPSource) record(base string, a *html.Node) (internal.ChapterRecord, bool) {
	href := strings.TrimSpace(attr(a, "href"))
	if href == "" {
		return internal.ChapterRecord{}, false
	}
	abs, err := resolve(base, href)
	if err != nil {
		return internal.ChapterRecord{}, false
	}

	for _, candidate := range []string{href, nodeText(a)} {
		m := s.index.FindStringSubmatch(candidate)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		return internal.ChapterRecord{Index: n, Source: abs}, true
	}
	return internal.ChapterRecord{}, false
}

// Fetch downloads a chapter page and extracts its paragraphs.
func (s *HTTPSource) Fetch(ctx context.Context, rec internal.ChapterRecord) (string, error) {
	doc, err := s.get(ctx, rec.Source)
	if err != nil {
		return "", fmt.Errorf("chapter %d: %w", rec.Index, err)
	}

	body := s.content.MatchFirst(doc)
	if body == nil {
		return "", fmt.Errorf("chapter %d: %w", rec.Index, ErrContentNotFound)
	}
	for _, sel := range s.remove {
		for _, n := range sel.MatchAll(body) {
			if n != body && n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
		}
	}

	return strings.Join(paragraphs(body), "\n\n"), nil
}

func (s *HTTPSource) get(ctx context.Context, rawURL string) (*html.Node, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{code: resp.StatusCode, url: rawURL}
	}

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrHTTPStatus, e.code, e.url)
}

func (e *statusError) Unwrap() error { return ErrHTTPStatus }

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "blockquote": true,
}

// paragraphs returns the trimmed, non-empty text blocks under n. Block
// elements and <br> start a new block.
func paragraphs(n *html.Node) []string {
	var blocks []string
	var cur strings.Builder

	flush := func() {
		if t := collapse(cur.String()); t != "" {
			blocks = append(blocks, t)
		}
		cur.Reset()
	}

	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.ElementNode:
			if blockTags[n.Data] {
				flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			flush()
		}
	}
	visit(n)
	flush()
	return blocks
}

// collapse folds runs of whitespace (non-breaking spaces included) to a
// single space and trims the result.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
