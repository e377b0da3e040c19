package inspire

import "github.com/czczc/inspire-papers-viewer/internal/domain"

// SearchResponse is the envelope returned by GET /api/literature.
type SearchResponse struct {
	Hits  Hits  `json:"hits"`
	Links Links `json:"links"`
}

// Hits holds one page of records and the total match count.
type Hits struct {
	Hits  []domain.LiteratureRecord `json:"hits"`
	Total int                       `json:"total"`
}

// Links holds pagination links.
type Links struct {
	Self string `json:"self"`
	Next string `json:"next,omitempty"`
}

// ErrorResponse is the body INSPIRE sends with 4xx/5xx statuses.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}
