package httpserver

import (
	"github.com/czczc/inspire-papers-viewer/internal/domain"
	"github.com/czczc/inspire-papers-viewer/internal/resolver"
)

type smallPaperListResponse struct {
	Papers     []*domain.SmallPaper `json:"papers"`
	TotalCount int                  `json:"total_count"`
}

// lookupResponse carries a null id when no record matches.
type lookupResponse struct {
	ID *string `json:"id"`
}

type idResponse struct {
	ID string `json:"id"`
}

type literatureListResponse struct {
	Records    []resolver.Rendered `json:"records"`
	TotalCount int                 `json:"total_count"`
	Query      string              `json:"query"`
}

func newSmallPaperListResponse(papers []*domain.SmallPaper) smallPaperListResponse {
	if papers == nil {
		papers = []*domain.SmallPaper{}
	}
	return smallPaperListResponse{Papers: papers, TotalCount: len(papers)}
}
