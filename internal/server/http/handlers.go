package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
	"github.com/czczc/inspire-papers-viewer/internal/papersources/inspire"
	"github.com/czczc/inspire-papers-viewer/internal/resolver"
)

const maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

// listSmallPapers handles GET /small-papers. A year query parameter, even an
// empty one, selects the year-filtered listing.
func (s *Server) listSmallPapers(w http.ResponseWriter, r *http.Request) {
	var (
		papers []*domain.SmallPaper
		err    error
	)
	if q := r.URL.Query(); q.Has("year") {
		papers, err = s.smallPapers.ListByYear(r.Context(), q.Get("year"))
	} else {
		papers, err = s.smallPapers.ListAll(r.Context())
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSmallPaperListResponse(papers))
}

// lookupSmallPaper handles GET /small-papers/lookup?arxiv_id=.
func (s *Server) lookupSmallPaper(w http.ResponseWriter, r *http.Request) {
	id, found, err := s.smallPapers.FindByArxivID(r.Context(), r.URL.Query().Get("arxiv_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var resp lookupResponse
	if found {
		resp.ID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

// createSmallPaper handles POST /small-papers.
func (s *Server) createSmallPaper(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeSmallPaperInput(w, r)
	if !ok {
		return
	}
	if input.AddedBy == nil || strings.TrimSpace(*input.AddedBy) == "" {
		if name := identityFromContext(r.Context()).Name(); name != "" {
			input.AddedBy = &name
		}
	}
	id, err := s.smallPapers.Insert(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// updateSmallPaper handles PUT /small-papers/{id}.
func (s *Server) updateSmallPaper(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeSmallPaperInput(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.smallPapers.Update(r.Context(), id, input); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

// deleteSmallPaper handles DELETE /small-papers/{id}.
func (s *Server) deleteSmallPaper(w http.ResponseWriter, r *http.Request) {
	if err := s.smallPapers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeSmallPaperInput reads the request body.
func decodeSmallPaperInput(w http.ResponseWriter, r *http.Request) (domain.SmallPaperInput, bool) {
	var input domain.SmallPaperInput

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return input, false
	}
	if err := json.Unmarshal(body, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return input, false
	}

	return input, true
}

// searchLiterature handles GET /literature.
func (s *Server) searchLiterature(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := inspire.SearchParams{
		Collaboration: strings.TrimSpace(q.Get("collaboration")),
		Query:         strings.TrimSpace(q.Get("q")),
		Sort:          q.Get("sort"),
	}

	var ok bool
	if params.Year, ok = parseIntParam(w, q.Get("year"), "year"); !ok {
		return
	}
	if params.Size, ok = parseIntParam(w, q.Get("size"), "size"); !ok {
		return
	}

	result, err := s.literature.Search(r.Context(), params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, literatureListResponse{
		Records:    resolver.RenderAll(result.Records),
		TotalCount: result.Total,
		Query:      result.Query,
	})
}

// getLiterature handles GET /literature/{recordID}.
func (s *Server) getLiterature(w http.ResponseWriter, r *http.Request) {
	rec, err := s.literature.GetByID(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolver.Render(rec))
}

// parseIntParam parses an optional non-negative integer query parameter.
// An empty value yields zero.
func parseIntParam(w http.ResponseWriter, raw, field string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeDomainError(w, domain.NewValidationError(field, "must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

// writeDomainError maps domain errors to HTTP status codes and writes the
// error response. Only messages that are safe for callers are echoed.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var (
		ve  *domain.ValidationError
		re  *domain.RemoteError
		ae  *domain.AuthError
		api *domain.ExternalAPIError
	)
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid argument")
	case errors.As(err, &re):
		writeError(w, http.StatusBadGateway, re.Message)
	case errors.As(err, &ae):
		writeError(w, http.StatusUnauthorized, ae.Error())
	case errors.Is(err, domain.ErrAuthFailure), errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "sign-in required")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.As(err, &api):
		writeError(w, http.StatusBadGateway, "literature service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
