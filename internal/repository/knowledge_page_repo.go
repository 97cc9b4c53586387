package repository

import (
	"context"

	"github.com/user/kb-crawler/internal/entity"
)

// KnowledgePageRepository stores extracted page text for a chatbot knowledge base.
type KnowledgePageRepository interface {
	// SaveAll upserts the pages. A page already stored for the same chatbot and URL is replaced.
	SaveAll(ctx context.Context, pages []entity.KnowledgePage) error
}
