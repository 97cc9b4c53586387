package postgres

import (
	"context"
	"time"

	"github.com/user/kb-crawler/internal/entity"
)

// KnowledgePageRepoImpl provides a concrete implementation for the KnowledgePageRepository interface using PostgreSQL.
type KnowledgePageRepoImpl struct {
	db DB
}

// NewKnowledgePageRepo creates a new instance of KnowledgePageRepoImpl.
func NewKnowledgePageRepo(db DB) *KnowledgePageRepoImpl {
	return &KnowledgePageRepoImpl{db: db}
}

// SaveAll upserts the pages in one statement, keyed on (chatbot_id, url).
func (r *KnowledgePageRepoImpl) SaveAll(ctx context.Context, pages []entity.KnowledgePage) error {
	if len(pages) == 0 {
		return nil
	}
	chatbots := make([]string, len(pages))
	urls := make([]string, len(pages))
	contents := make([]string, len(pages))
	counts := make([]int32, len(pages))
	extracted := make([]time.Time, len(pages))
	for i, p := range pages {
		chatbots[i] = p.ChatbotID
		urls[i] = p.URL
		contents[i] = p.Content
		counts[i] = int32(p.CharCount)
		extracted[i] = p.ExtractedAt
	}

	query := `
		INSERT INTO knowledge_pages (chatbot_id, url, content, char_count, extracted_at)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::int[], $5::timestamptz[])
		ON CONFLICT (chatbot_id, url) DO UPDATE SET
			content = EXCLUDED.content,
			char_count = EXCLUDED.char_count,
			extracted_at = EXCLUDED.extracted_at;
	`
	_, err := r.db.Exec(ctx, query, chatbots, urls, contents, counts, extracted)
	return err
}
