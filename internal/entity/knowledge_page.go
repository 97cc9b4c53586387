package entity

import "time"

// KnowledgePage mirrors the `knowledge_pages` PostgreSQL table schema.
type KnowledgePage struct {
	ChatbotID   string
	URL         string
	Content     string
	CharCount   int
	ExtractedAt time.Time
}

// IngestJob is the queue payload picked up by the embedding pipeline.
type IngestJob struct {
	ChatbotID  string    `json:"chatbotId"`
	URLs       []string  `json:"urls"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}
