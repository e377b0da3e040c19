package domain

import (
	"strings"
	"time"
)

// DefaultAddedBy is recorded when a small paper is inserted without an added_by value.
const DefaultAddedBy = "anonymous"

// SmallPaper is a manually curated paper stored in the auxiliary collection.
// ID and AddedAt are owned by the store; UpdatedAt is nil until the first update.
type SmallPaper struct {
	ID          string     `json:"id"`
	ArxivID     string     `json:"arxiv_id"`
	Title       string     `json:"title"`
	Year        *int       `json:"year"`
	Publication *string    `json:"publication"`
	Authors     *string    `json:"authors"`
	AddedBy     string     `json:"added_by"`
	AddedAt     time.Time  `json:"added_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// SmallPaperInput carries caller-supplied fields for insert and update.
// A nil optional field means the caller did not provide it.
type SmallPaperInput struct {
	ArxivID     string  `json:"arxiv_id" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Year        *int    `json:"year,omitempty"`
	Publication *string `json:"publication,omitempty"`
	Authors     *string `json:"authors,omitempty"`
	AddedBy     *string `json:"added_by,omitempty"`
}

// SmallPaperFields is the normalized set of columns written to the store.
type SmallPaperFields struct {
	ArxivID     string
	Title       string
	Year        *int
	Publication *string
	Authors     *string
	AddedBy     *string
}

// ForInsert normalizes the input for a new record: required fields are trimmed,
// empty optional values become nil and added_by falls back to DefaultAddedBy.
func (in SmallPaperInput) ForInsert() SmallPaperFields {
	f := SmallPaperFields{
		ArxivID:     strings.TrimSpace(in.ArxivID),
		Title:       strings.TrimSpace(in.Title),
		Year:        nonZeroInt(in.Year),
		Publication: nonEmpty(in.Publication),
		Authors:     nonEmpty(in.Authors),
	}
	addedBy := DefaultAddedBy
	if v := nonEmpty(in.AddedBy); v != nil {
		addedBy = *v
	}
	f.AddedBy = &addedBy
	return f
}

// ForUpdate normalizes the input for a merge update. Optional fields keep their
// nil-ness so that omitted fields are left untouched by the store.
func (in SmallPaperInput) ForUpdate() SmallPaperFields {
	return SmallPaperFields{
		ArxivID:     strings.TrimSpace(in.ArxivID),
		Title:       strings.TrimSpace(in.Title),
		Year:        in.Year,
		Publication: in.Publication,
		Authors:     in.Authors,
		AddedBy:     in.AddedBy,
	}
}

func nonZeroInt(v *int) *int {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func nonEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
