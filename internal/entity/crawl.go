package entity

import (
	"fmt"
	"unicode/utf8"
)

// CrawlMode selects how pages are discovered from the seed URL.
type CrawlMode string

const (
	ModeWebsite CrawlMode = "website"
	ModeSitemap CrawlMode = "sitemap"
)

// ParseCrawlMode validates a mode string coming from a request.
func ParseCrawlMode(s string) (CrawlMode, error) {
	switch CrawlMode(s) {
	case ModeWebsite, ModeSitemap:
		return CrawlMode(s), nil
	}
	return "", fmt.Errorf("unknown crawl mode %q", s)
}

// CrawlRequest describes one crawl. MaxDepth is only used in website mode.
type CrawlRequest struct {
	SeedURL  string
	Mode     CrawlMode
	MaxDepth int
}

// PageResult is the summary returned to crawl callers.
type PageResult struct {
	URL       string `json:"url"`
	CharCount int    `json:"charCount"`
}

// PageContent is the full text extracted from one page.
type PageContent struct {
	Link    string `json:"link"`
	Content string `json:"content"`
}

// CharCount is the length of the extracted text in characters.
func (p PageContent) CharCount() int {
	return utf8.RuneCountInString(p.Content)
}

// Result projects the page to its summary form.
func (p PageContent) Result() PageResult {
	return PageResult{URL: p.Link, CharCount: p.CharCount()}
}

// Failure stages.
const (
	StageDiscover = "discover"
	StageExtract  = "extract"
)

// PageFailure records a single page that could not be loaded or read.
type PageFailure struct {
	URL    string `json:"url"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// CrawlOutcome is the ordered result of one crawl; Pages keep discovery order.
type CrawlOutcome struct {
	RunID    string        `json:"runId,omitempty"`
	Pages    []PageContent `json:"pages"`
	Failures []PageFailure `json:"failures,omitempty"`
}

// Results returns the {url, charCount} view of the outcome.
func (o *CrawlOutcome) Results() []PageResult {
	out := make([]PageResult, 0, len(o.Pages))
	for _, p := range o.Pages {
		out = append(out, p.Result())
	}
	return out
}

// Empty reports whether no page was extracted.
func (o *CrawlOutcome) Empty() bool {
	return o == nil || len(o.Pages) == 0
}
