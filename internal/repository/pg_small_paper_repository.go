package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
)

// Compile-time interface verification.
var _ SmallPaperRepository = (*PgSmallPaperRepository)(nil)

const smallPaperColumns = `id, arxiv_id, title, year, publication, authors, added_by, added_at, updated_at`

// PgSmallPaperRepository is a PostgreSQL implementation of SmallPaperRepository.
type PgSmallPaperRepository struct {
	db    DBTX
	newID func() string
}

// NewPgSmallPaperRepository creates a new PostgreSQL small paper repository.
func NewPgSmallPaperRepository(db DBTX) *PgSmallPaperRepository {
	return &PgSmallPaperRepository{db: db, newID: uuid.NewString}
}

// arxivOrder sorts arxiv ids byte-wise regardless of the database locale.
const arxivOrder = `ORDER BY arxiv_id COLLATE "C" DESC`

// List returns every small paper ordered by arxiv_id descending.
func (r *PgSmallPaperRepository) List(ctx context.Context) ([]*domain.SmallPaper, error) {
	query := `SELECT ` + smallPaperColumns + `
		FROM small_papers
		` + arxivOrder

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list small papers: %w", err)
	}
	return collectSmallPapers(rows)
}

// ListByYear returns the small papers published in year, ordered by arxiv_id descending.
func (r *PgSmallPaperRepository) ListByYear(ctx context.Context, year int) ([]*domain.SmallPaper, error) {
	query := `SELECT ` + smallPaperColumns + `
		FROM small_papers
		WHERE year = $1
		` + arxivOrder

	rows, err := r.db.Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list small papers by year: %w", err)
	}
	return collectSmallPapers(rows)
}

// FindIDByArxivID returns the id of the earliest added paper with the given
// arxiv_id.
func (r *PgSmallPaperRepository) FindIDByArxivID(ctx context.Context, arxivID string) (string, bool, error) {
	query := `SELECT id FROM small_papers WHERE arxiv_id = $1 ORDER BY added_at, id LIMIT 1`

	var id string
	if err := r.db.QueryRow(ctx, query, arxivID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to find small paper by arxiv id: %w", err)
	}
	return id, true, nil
}

// Create inserts a new paper. The id is generated here; added_at comes from the server clock.
func (r *PgSmallPaperRepository) Create(ctx context.Context, fields domain.SmallPaperFields) (*domain.SmallPaper, error) {
	addedBy := domain.DefaultAddedBy
	if fields.AddedBy != nil && *fields.AddedBy != "" {
		addedBy = *fields.AddedBy
	}

	paper := &domain.SmallPaper{
		ID:          r.newID(),
		ArxivID:     fields.ArxivID,
		Title:       fields.Title,
		Year:        fields.Year,
		Publication: fields.Publication,
		Authors:     fields.Authors,
		AddedBy:     addedBy,
	}

	query := `
		INSERT INTO small_papers (
			id, arxiv_id, title, year, publication, authors, added_by, added_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
		RETURNING added_at`

	err := r.db.QueryRow(ctx, query,
		paper.ID,
		paper.ArxivID,
		paper.Title,
		paper.Year,
		paper.Publication,
		paper.Authors,
		paper.AddedBy,
	).Scan(&paper.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert small paper: %w", err)
	}

	return paper, nil
}

// Update merges the provided fields into the stored paper.
// A provided optional field that is empty (year 0 or "") clears the column,
// except added_by which is NOT NULL and is left untouched when empty.
func (r *PgSmallPaperRepository) Update(ctx context.Context, id string, fields domain.SmallPaperFields) error {
	setClauses := []string{"arxiv_id = $1", "title = $2"}
	args := []interface{}{fields.ArxivID, fields.Title}
	argIndex := 3

	if fields.Year != nil {
		setClauses = append(setClauses, fmt.Sprintf("year = $%d", argIndex))
		args = append(args, nullableInt(*fields.Year))
		argIndex++
	}
	if fields.Publication != nil {
		setClauses = append(setClauses, fmt.Sprintf("publication = $%d", argIndex))
		args = append(args, nullableString(*fields.Publication))
		argIndex++
	}
	if fields.Authors != nil {
		setClauses = append(setClauses, fmt.Sprintf("authors = $%d", argIndex))
		args = append(args, nullableString(*fields.Authors))
		argIndex++
	}
	if fields.AddedBy != nil && *fields.AddedBy != "" {
		setClauses = append(setClauses, fmt.Sprintf("added_by = $%d", argIndex))
		args = append(args, *fields.AddedBy)
		argIndex++
	}
	setClauses = append(setClauses, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE small_papers SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "), argIndex)
	args = append(args, id)

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update small paper: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("small paper", id)
	}

	return nil
}

// Delete removes the paper with the given id.
func (r *PgSmallPaperRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM small_papers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete small paper: %w", err)
	}
	return nil
}

func collectSmallPapers(rows pgx.Rows) ([]*domain.SmallPaper, error) {
	defer rows.Close()

	papers := make([]*domain.SmallPaper, 0)
	for rows.Next() {
		paper, err := scanSmallPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan small paper: %w", err)
		}
		papers = append(papers, paper)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating small papers: %w", err)
	}

	return papers, nil
}

func scanSmallPaper(row pgx.Row) (*domain.SmallPaper, error) {
	var (
		p         domain.SmallPaper
		updatedAt *time.Time
	)
	err := row.Scan(
		&p.ID, &p.ArxivID, &p.Title, &p.Year, &p.Publication, &p.Authors,
		&p.AddedBy, &p.AddedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = updatedAt
	return &p, nil
}

func nullableInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
