package response

import "github.com/user/kb-crawler/internal/entity"

// CrawlResponse lists every extracted page with its text length.
type CrawlResponse struct {
	Links    []entity.PageResult  `json:"links"`
	Failures []entity.PageFailure `json:"failures,omitempty"`
	RunID    string               `json:"runId,omitempty"`
}

// ExtractResponse carries the full text of each requested page.
type ExtractResponse struct {
	Pages    []entity.PageContent `json:"pages"`
	Failures []entity.PageFailure `json:"failures,omitempty"`
	// Ingested is set when the pages were handed to a chatbot knowledge base.
	Ingested bool `json:"ingested"`
}

// CrawlRunResponse is a DTO for a recorded crawl, mirroring entity.CrawlRun
type CrawlRunResponse struct {
	*entity.CrawlRun
	Failures []entity.PageFailure `json:"failures"`
}
