package resolver

import "github.com/czczc/inspire-papers-viewer/internal/domain"

// Rendered bundles the presentable fields of one literature record.
// DOIURL and ArxivURL are nil when the record has no such identifier.
type Rendered struct {
	RecordID        string  `json:"record_id,omitempty"`
	Title           string  `json:"title"`
	Authors         string  `json:"authors"`
	PublicationInfo string  `json:"publication_info"`
	RecordURL       string  `json:"record_url"`
	DOIURL          *string `json:"doi_url"`
	ArxivURL        *string `json:"arxiv_url"`
}

// Render applies every resolver to rec.
func Render(rec *domain.LiteratureRecord) Rendered {
	out := Rendered{
		Title:           rec.Title(),
		Authors:         AuthorCitation(rec),
		PublicationInfo: PublicationInfo(rec),
		RecordURL:       RecordLink(rec),
	}
	if rec != nil {
		out.RecordID = rec.ID
	}
	if doi, ok := DOILink(rec); ok {
		out.DOIURL = &doi
	}
	if arxiv, ok := ArxivLink(rec); ok {
		out.ArxivURL = &arxiv
	}
	return out
}

// RenderAll renders records in order.
func RenderAll(recs []*domain.LiteratureRecord) []Rendered {
	out := make([]Rendered, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Render(rec))
	}
	return out
}
