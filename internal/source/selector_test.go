package source

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const selectorDoc = `<html><body>
<div id="content" class="chapter text">
  <p class="line">one</p>
  <div class="ad" data-ad="1"><p class="line">buy now</p></div>
  <p>two</p>
</div>
<ul class="list"><li><a href="/c/1">Ch 1</a></li><li><a class="next" href="/p/2">next</a></li></ul>
</body></html>`

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestCompileSelector_Errors(t *testing.T) {
	for _, s := range []string{"", "   ", "div.", "p#", "a[href"} {
		if _, err := compileSelector("link_selector", s); err == nil {
			t.Errorf("compileSelector(%q) expected error", s)
		} else if !strings.Contains(err.Error(), "link_selector") {
			t.Errorf("error %q does not name the field", err)
		}
	}
}

func TestSelector_MatchAll(t *testing.T) {
	doc := parse(t, selectorDoc)

	tests := []struct {
		selector string
		want     int
	}{
		{"p", 3},
		{"p.line", 2},
		{"#content", 1},
		{"div#content.chapter.text", 1},
		{".chapter.missing", 0},
		{"div.ad p", 1},
		{"#content p", 3},
		{"ul.list a", 2},
		{"ul a.next", 1},
		{"li div", 0},
		{"#content > p", 2},
		{"ul.list > li > a", 2},
		{`a[href^="/c/"]`, 1},
		{"[data-ad]", 1},
		{"p:not(.line)", 1},
		{"a.next, #content", 2},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			sel, err := compileSelector("content_selector", tt.selector)
			if err != nil {
				t.Fatalf("compileSelector: %v", err)
			}
			if got := len(sel.MatchAll(doc)); got != tt.want {
				t.Errorf("MatchAll(%q) = %d nodes, want %d", tt.selector, got, tt.want)
			}
		})
	}
}

func TestSelector_MatchFirst(t *testing.T) {
	doc := parse(t, selectorDoc)
	sel, err := compileSelector("content_selector", "p")
	if err != nil {
		t.Fatal(err)
	}

	n := sel.MatchFirst(doc)
	if n == nil || nodeText(n) != "one" {
		t.Errorf("expected first paragraph, got %v", n)
	}

	missing, err := compileSelector("content_selector", "table")
	if err != nil {
		t.Fatal(err)
	}
	if missing.MatchFirst(doc) != nil {
		t.Error("expected nil for no match")
	}
}

func TestAttr(t *testing.T) {
	doc := parse(t, selectorDoc)
	sel, _ := compileSelector("link_selector", "a.next")
	a := sel.MatchFirst(doc)
	if a == nil {
		t.Fatal("anchor not found")
	}
	if got := attr(a, "href"); got != "/p/2" {
		t.Errorf("attr(href) = %q", got)
	}
	if got := attr(a, "title"); got != "" {
		t.Errorf("attr(title) = %q, want empty", got)
	}
}
