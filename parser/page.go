// Package parser turns raw catalog HTML into the few facts the quoter trusts.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Link is an anchor with an href and its visible text.
type Link struct {
	Href string
	Text string
}

// Page is the parsed view of a fetched document.
type Page struct {
	Links   []Link
	Heading string // first h1, empty when absent
	Text    string // all visible text, whitespace-normalized
}

// Parse reads an HTML document. Malformed markup is tolerated the way
// browsers tolerate it.
func Parse(body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &Page{}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		page.Links = append(page.Links, Link{
			Href: href,
			Text: VisibleText(sel.Nodes...),
		})
	})

	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		page.Heading = VisibleText(h1.Nodes...)
	}
	page.Text = VisibleText(doc.Selection.Nodes...)
	return page, nil
}

// VisibleText joins the text nodes under nodes with single spaces, skipping
// content that is never rendered.
func VisibleText(nodes ...*html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
