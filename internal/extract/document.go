package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page.
type Document struct {
	URL   string
	Title string

	doc *goquery.Document
}

// Parse parses an HTML page loaded from pageURL.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		doc:   doc,
	}, nil
}

// ParseString parses an HTML page held in memory.
func ParseString(s, pageURL string) (*Document, error) {
	return Parse(strings.NewReader(s), pageURL)
}

// Body returns the body element, or the document root when there is none.
func (d *Document) Body() *html.Node {
	if body := d.doc.Find("body"); body.Length() > 0 {
		return body.Get(0)
	}
	return d.doc.Get(0)
}

// Find returns the first node matching a CSS selector, or nil.
func (d *Document) Find(selector string) *html.Node {
	sel := d.doc.Find(selector)
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}

// Select returns a selection over the first occurrence of text in the body.
func (d *Document) Select(text string) (*Selection, bool) {
	return SelectText(d.Body(), text)
}
