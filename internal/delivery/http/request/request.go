package request

// CrawlRequest is the body of POST /crawl.
type CrawlRequest struct {
	URL  string `json:"url"`
	Type string `json:"type"` // "website" or "sitemap"
	// Depth is only used for website crawls; omitted means the configured default.
	Depth   *int   `json:"depth,omitempty"`
	OnError string `json:"onError,omitempty"` // "abort" or "skip"
}

// ExtractRequest is the body of POST /extract.
type ExtractRequest struct {
	Links     []string `json:"links"`
	ChatbotID string   `json:"chatbotId,omitempty"`
	OnError   string   `json:"onError,omitempty"`
}
