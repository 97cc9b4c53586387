package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/kb-crawler/internal/repository"
	"golang.org/x/net/html"
)

// ContentExtractor reads the visible body text of a page.
type ContentExtractor struct{}

// NewContentExtractor creates a ContentExtractor.
func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// ExtractText loads url and returns its rendered body text. When the browser
// reports no text, the text is rebuilt from the document markup.
func (e *ContentExtractor) ExtractText(ctx context.Context, session repository.BrowserSession, url string) (string, error) {
	page, err := session.Load(ctx, url)
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", url, err)
	}
	if text := strings.TrimSpace(page.Text); text != "" {
		return text, nil
	}
	return textFromHTML(page.HTML)
}

var skippedTextElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// textFromHTML joins the whitespace-collapsed text nodes of <body>, one per line.
func textFromHTML(doc string) (string, error) {
	root, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTextElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range root.Find("body").Nodes {
		walk(n)
	}
	return strings.Join(parts, "\n"), nil
}
