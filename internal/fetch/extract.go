package fetch

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ErrNoProse means the page parsed but contained no extractable text
var ErrNoProse = errors.New("no extractable prose content")

// mainContentSelectors are tried in order before falling back to <body>
var mainContentSelectors = []string{
	"main",
	"article",
	"[role=main]",
	".content",
	"#content",
}

// boilerplateSelector matches elements that never carry reference prose
const boilerplateSelector = "script, style, noscript, iframe, svg, nav, header, footer, aside, form"

// ExtractText reduces an HTML page to prose content: boilerplate elements
// are removed, the main content region is preferred over the full body, and
// whitespace is normalized to one line per block.
func ExtractText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find(boilerplateSelector).Remove()

	sel := mainContent(doc)

	var buf strings.Builder
	for _, n := range sel.Nodes {
		writeVisibleText(&buf, n)
	}

	text := normalizeWhitespace(buf.String())
	if text == "" {
		return "", ErrNoProse
	}

	return text, nil
}

// mainContent picks the densest content region of the page
func mainContent(doc *goquery.Document) *goquery.Selection {
	for _, selector := range mainContentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			return sel.First()
		}
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// blockTags delimit lines in the extracted text so sentence boundaries
// survive the flattening
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "blockquote": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"br": true, "hr": true,
}

// writeVisibleText walks the node tree appending text nodes, inserting
// newlines around block-level elements
func writeVisibleText(buf *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
		return
	}

	isBlock := n.Type == html.ElementNode && blockTags[n.Data]
	if isBlock {
		buf.WriteString("\n")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeVisibleText(buf, c)
	}

	if isBlock {
		buf.WriteString("\n")
	}
}

// normalizeWhitespace trims every line, collapses runs of spaces, and drops
// blank lines
func normalizeWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
