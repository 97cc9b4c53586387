package repository

import "context"

// RenderedPage is a snapshot of a page after the browser finished loading it.
type RenderedPage struct {
	// URL is the final URL after redirects.
	URL string
	// HTML is the serialized document, including XML documents such as sitemaps.
	HTML string
	// Text is the rendered body text. Empty when the document has no body.
	Text string
	// Status is the HTTP status of the main document, 0 when the driver could not see it.
	Status int
}

// BrowserSession is one headless browser owned by a single crawl.
type BrowserSession interface {
	// Load opens a fresh tab, navigates to url, snapshots the document and closes the tab.
	Load(ctx context.Context, url string) (*RenderedPage, error)
	// Close shuts the browser down. The owner calls it exactly once.
	Close() error
}

// BrowserLauncher starts browser sessions.
type BrowserLauncher interface {
	Launch(ctx context.Context) (BrowserSession, error)
}
