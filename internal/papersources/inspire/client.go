// Package inspire is a client for the INSPIRE-HEP literature REST API.
package inspire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/czczc/inspire-papers-viewer/internal/domain"
	"github.com/czczc/inspire-papers-viewer/internal/observability"
	"github.com/czczc/inspire-papers-viewer/internal/papersources"
)

const (
	// DefaultBaseURL is the public INSPIRE-HEP host.
	DefaultBaseURL = "https://inspirehep.net"

	// DefaultRateLimit keeps well below the published 15 requests per 5 seconds.
	DefaultRateLimit = 2.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the number of records returned when SearchParams.Size is zero.
	DefaultPageSize = 25

	// MaxPageSize is the largest page INSPIRE serves without pagination.
	MaxPageSize = 250

	// DefaultSort orders search results newest first.
	DefaultSort = "mostrecent"

	// recordFields restricts responses to what the resolvers read.
	recordFields = "titles,authors.full_name,author_count,publication_info,arxiv_eprints,dois,earliest_date,control_number"

	sourceName = "INSPIRE"
	sourceKey  = "inspire"
)

// Config contains configuration options for the INSPIRE client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to DefaultRateLimit.
	RateLimit float64

	// BurstSize defaults to DefaultBurstSize.
	BurstSize int

	// MaxRetries is passed to the HTTP client.
	MaxRetries int

	// DefaultCollaboration is searched when SearchParams names neither a collaboration nor a query.
	DefaultCollaboration string

	// PageSize defaults to DefaultPageSize.
	PageSize int

	// Metrics is optional.
	Metrics *observability.Metrics

	// Logger receives per-record debug entries. The zero value discards them.
	Logger zerolog.Logger
}

// SearchParams selects literature records.
type SearchParams struct {
	// Collaboration restricts results to one collaboration, e.g. "DUNE".
	Collaboration string

	// Year restricts results to records dated in that year. Zero means any year.
	Year int

	// Query is a raw INSPIRE search expression. When set it replaces the
	// collaboration and year filters.
	Query string

	// Size is the number of records to return. Zero uses the configured page size.
	Size int

	// Sort is an INSPIRE sort key ("mostrecent", "mostcited"). Defaults to DefaultSort.
	Sort string
}

// SearchResult is one page of literature records.
type SearchResult struct {
	Records        []*domain.LiteratureRecord
	Total          int
	Query          string
	SearchDuration time.Duration
}

// Client fetches literature records from INSPIRE.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new INSPIRE client with the given configuration.
// If httpClient is nil, a new one is created from cfg.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageSize > MaxPageSize {
		cfg.PageSize = MaxPageSize
	}

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			BurstSize:  cfg.BurstSize,
			MaxRetries: cfg.MaxRetries,
			Source:     sourceKey,
			Metrics:    cfg.Metrics,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     observability.WithComponent(cfg.Logger, sourceKey),
	}
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// Search runs a literature search and returns the first page of matches.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	start := time.Now()

	query := c.BuildQuery(params)
	if query == "" {
		return nil, domain.NewValidationError("collaboration", "a collaboration or query is required")
	}

	searchURL, err := c.buildSearchURL(query, params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	var searchResp SearchResponse
	if err := c.getJSON(ctx, searchURL, &searchResp, nil); err != nil {
		c.config.Metrics.RecordSearchFailed(sourceKey, time.Since(start).Seconds())
		return nil, err
	}

	records := make([]*domain.LiteratureRecord, 0, len(searchResp.Hits.Hits))
	for i := range searchResp.Hits.Hits {
		records = append(records, &searchResp.Hits.Hits[i])
	}

	elapsed := time.Since(start)
	c.config.Metrics.RecordSearchCompleted(sourceKey, len(records), elapsed.Seconds())

	return &SearchResult{
		Records:        records,
		Total:          searchResp.Hits.Total,
		Query:          query,
		SearchDuration: elapsed,
	}, nil
}

// GetByID retrieves one literature record by its INSPIRE identifier.
// Returns a *domain.NotFoundError when INSPIRE answers 404.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.LiteratureRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("id", "record id is required")
	}

	logger := observability.WithRecordContext(c.logger, id)
	recordURL := fmt.Sprintf("%s/api/literature/%s?fields=%s", c.config.BaseURL, url.PathEscape(id), recordFields)

	var rec domain.LiteratureRecord
	if err := c.getJSON(ctx, recordURL, &rec, func() error {
		return domain.NewNotFoundError("literature record", id)
	}); err != nil {
		logger.Debug().Err(err).Msg("literature record fetch failed")
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = id
	}
	logger.Debug().Str("title", rec.Title()).Msg("literature record fetched")
	return &rec, nil
}

// BuildQuery renders params as an INSPIRE search expression:
// collaboration:"<name>" optionally followed by " and date:<year>".
func (c *Client) BuildQuery(params SearchParams) string {
	if q := strings.TrimSpace(params.Query); q != "" {
		return q
	}

	collaboration := strings.TrimSpace(params.Collaboration)
	if collaboration == "" {
		collaboration = c.config.DefaultCollaboration
	}
	if collaboration == "" {
		return ""
	}

	query := fmt.Sprintf("collaboration:%q", collaboration)
	if params.Year > 0 {
		query += " and date:" + strconv.Itoa(params.Year)
	}
	return query
}

func (c *Client) buildSearchURL(query string, params SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("api", "literature")

	size := params.Size
	if size <= 0 {
		size = c.config.PageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	sort := params.Sort
	if sort == "" {
		sort = DefaultSort
	}

	q := searchURL.Query()
	q.Set("q", query)
	q.Set("size", strconv.Itoa(size))
	q.Set("sort", sort)
	q.Set("fields", recordFields)
	searchURL.RawQuery = q.Encode()

	return searchURL.String(), nil
}

// getJSON issues a GET and decodes a 2xx body into out. onNotFound, when set,
// produces the error returned for a 404.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any, onNotFound func() error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewExternalAPIError(sourceName, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && onNotFound != nil {
		return onNotFound()
	}
	if err := handleErrorResponse(resp); err != nil {
		return err
	}

	// Limit body to 10MB to prevent resource exhaustion.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "decoding response", err)
	}
	return nil
}

func handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, errResp.Message, nil)
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, strings.TrimSpace(string(body)), nil)
}
