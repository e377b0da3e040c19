package repository

import (
	"context"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
)

// SmallPaperRepository persists the auxiliary small papers collection.
type SmallPaperRepository interface {
	// List returns every small paper ordered by arxiv_id descending.
	List(ctx context.Context) ([]*domain.SmallPaper, error)

	// ListByYear returns the small papers whose year equals year,
	// ordered by arxiv_id descending.
	ListByYear(ctx context.Context, year int) ([]*domain.SmallPaper, error)

	// FindIDByArxivID returns the id of the first paper with the given arxiv_id.
	// found is false when no paper matches.
	FindIDByArxivID(ctx context.Context, arxivID string) (id string, found bool, err error)

	// Create inserts a new paper and returns it with its generated id and added_at.
	Create(ctx context.Context, fields domain.SmallPaperFields) (*domain.SmallPaper, error)

	// Update overwrites arxiv_id and title, overwrites every optional field that
	// is non-nil, and stamps updated_at. added_at is never modified.
	// Returns domain.ErrNotFound if no paper has the given id.
	Update(ctx context.Context, id string, fields domain.SmallPaperFields) error

	// Delete removes the paper with the given id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error
}
