// Package platsbanken is a client for the Arbetsförmedlingen Platsbanken job
// search API.
package platsbanken

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

const (
	// DefaultBaseURL is the public Platsbanken API root.
	DefaultBaseURL = "https://platsbanken-api.arbetsformedlingen.se/jobs/v1"
	// PageSize is the number of ads requested per search page.
	PageSize = 100

	defaultTimeout = 30 * time.Second
	errorBodyLimit = 4096
)

// Config configures a Client.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Now               func() time.Time
	Logger            *zap.Logger
}

// Client lists posting ids and fetches posting details.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
	logger     *zap.Logger
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("platsbanken: parse base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		now:        now,
		logger:     logger,
	}, nil
}

// ListIDs returns every posting id listed for field and region, in the API's
// relevance order.
func (c *Client) ListIDs(ctx context.Context, field, region string) ([]string, error) {
	toDate := c.now().UTC().Format(time.RFC3339Nano)
	first, err := c.search(ctx, field, region, 0, toDate)
	if err != nil {
		return nil, err
	}
	ids := appendIDs(make([]string, 0, max(first.NumberOfAds, len(first.Ads))), first)

	pages := (first.NumberOfAds + PageSize - 1) / PageSize
	for page := 1; page < pages; page++ {
		resp, err := c.search(ctx, field, region, page*PageSize, toDate)
		if err != nil {
			return nil, fmt.Errorf("page %d/%d: %w", page+1, pages, err)
		}
		ids = appendIDs(ids, resp)
	}
	c.logger.Debug("listing fetched",
		zap.String("field", field),
		zap.String("region", region),
		zap.Int("reported", first.NumberOfAds),
		zap.Int("ids", len(ids)),
		zap.Int("pages", pages),
	)
	return ids, nil
}

// Posting fetches one posting by id.
func (c *Client) Posting(ctx context.Context, id string) (crawler.Posting, error) {
	var payload jobResponse
	endpoint := c.baseURL + "/job/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return crawler.Posting{}, fmt.Errorf("posting %s: %w", id, err)
	}
	return crawler.Posting{
		ID:                  payload.ID,
		Title:               payload.Title,
		Description:         payload.Description,
		Languages:           mapRequirements(payload.Languages),
		WorkExperiences:     mapRequirements(payload.WorkExperiences),
		LastApplicationDate: payload.LastApplicationDate,
		ApplicationURL:      payload.Application.WebAddress,
	}, nil
}

func (c *Client) search(ctx context.Context, field, region string, startIndex int, toDate string) (searchResponse, error) {
	body := searchRequest{
		Filters: []searchFilter{
			{Type: "occupationField", Value: field},
			{Type: "region", Value: region},
		},
		Order:      "relevance",
		MaxRecords: PageSize,
		StartIndex: startIndex,
		ToDate:     toDate,
		Source:     "pb",
	}
	var payload searchResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/search", body, &payload); err != nil {
		return searchResponse{}, fmt.Errorf("search %s/%s at %d: %w", field, region, startIndex, err)
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("platsbanken: rate limiter: %w", err)
	}
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("platsbanken: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("platsbanken: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platsbanken: request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("platsbanken: decode response: %w", err)
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("platsbanken: API error (%d): %s", e.Code, e.Body)
}

func appendIDs(ids []string, resp searchResponse) []string {
	for _, ad := range resp.Ads {
		ids = append(ids, ad.ID)
	}
	return ids
}

func mapRequirements(in []requirement) []crawler.Requirement {
	out := make([]crawler.Requirement, len(in))
	for i, r := range in {
		out[i] = crawler.Requirement{Name: r.Name, Required: r.Required}
	}
	return out
}
