// Package markdown converts rendered HTML into the markdown-like text the
// extractor and quality gate read: "#" headings, [text](href) links and
// paragraphs separated by blank lines.
package markdown

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is the converted page.
type Document struct {
	Title string
	Text  string
}

const strippedSelectors = "script, style, noscript, template, svg, iframe"

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"header": true, "footer": true, "nav": true, "aside": true, "form": true,
	"table": true, "tr": true, "ul": true, "ol": true, "blockquote": true,
	"pre": true, "dl": true, "dt": true, "dd": true, "figure": true,
}

// Convert parses HTML from r. Relative links are resolved against pageURL.
func Convert(r io.Reader, pageURL string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	title := pageTitle(doc)
	doc.Find(strippedSelectors).Remove()

	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	w := &writer{base: base}
	for _, n := range root.Nodes {
		w.children(n)
	}
	return Document{Title: title, Text: tidy(w.b.String())}, nil
}

// ConvertString is Convert for an in-memory document.
func ConvertString(document, pageURL string) (Document, error) {
	return Convert(strings.NewReader(document), pageURL)
}

func pageTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return collapse(title)
	}
	if ogTitle, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		return collapse(ogTitle)
	}
	return ""
}

type writer struct {
	b    strings.Builder
	base *url.URL
}

func (w *writer) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
}

func (w *writer) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
	case html.ElementNode:
		w.element(n)
	case html.DocumentNode:
		w.children(n)
	default:
	}
}

func (w *writer) element(n *html.Node) {
	tag := strings.ToLower(n.Data)
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := w.inline(n)
		if text == "" {
			return
		}
		w.block()
		w.b.WriteString(strings.Repeat("#", int(tag[1]-'0')))
		w.b.WriteByte(' ')
		w.b.WriteString(text)
		w.block()
	case "a":
		w.link(n)
	case "br":
		w.b.WriteByte('\n')
	case "li":
		w.b.WriteString("\n- ")
		w.children(n)
		w.b.WriteByte('\n')
	case "td", "th":
		w.children(n)
		w.b.WriteString(" | ")
	default:
		if blockTags[tag] {
			w.block()
			w.children(n)
			w.block()
			return
		}
		w.children(n)
	}
}

func (w *writer) link(n *html.Node) {
	text := w.inline(n)
	href := strings.TrimSpace(attr(n, "href"))
	lower := strings.ToLower(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(lower, "javascript:") {
		w.text(text)
		return
	}
	if text == "" {
		text = href
	}
	w.b.WriteString(" [")
	w.b.WriteString(text)
	w.b.WriteString("](")
	w.b.WriteString(w.resolve(href))
	w.b.WriteString(") ")
}

// inline renders n's children onto a single line.
func (w *writer) inline(n *html.Node) string {
	sub := &writer{base: w.base}
	sub.children(n)
	return collapse(sub.b.String())
}

// text writes s with inner whitespace folded to single spaces, keeping a
// leading or trailing separator so adjacent inline nodes stay apart.
func (w *writer) text(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			w.b.WriteByte(' ')
		}
		return
	}
	if isSpace(s[0]) {
		w.b.WriteByte(' ')
	}
	w.b.WriteString(strings.Join(fields, " "))
	if isSpace(s[len(s)-1]) {
		w.b.WriteByte(' ')
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func (w *writer) block() {
	w.b.WriteString("\n\n")
}

func (w *writer) resolve(href string) string {
	if w.base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return w.base.ResolveReference(ref).String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tidy collapses spaces within lines and keeps at most one blank line
// between paragraphs.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = collapse(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
