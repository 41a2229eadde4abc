// Package search provides the client for the paginated news search API.
package search

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

	"qnews/internal/config"
	"qnews/internal/logger"
	"qnews/pkg/utils"
)

// Sort orders accepted by the API. Quarter-bounded collection depends on
// SortDate: the early-stop in the collector assumes non-increasing dates.
const (
	SortDate      = "date"
	SortRelevance = "relevance"
)

// PageMax is the API's documented per-page maximum.
const PageMax = 100

// ResultCap is the API's absolute per-query result cap.
const ResultCap = 1000

// Client defines the interface for one bounded search API call.
type Client interface {
	FetchPage(ctx context.Context, query string, offset, pageSize int) (*Page, error)
}

// Ensure NaverClient implements Client.
var _ Client = (*NaverClient)(nil)

// Page is one API response page.
type Page struct {
	Total int
	Items []Item
}

// Item is one raw result record as returned by the API. Title and
// Description may carry highlight markup that must be stripped before
// filtering or storage.
type Item struct {
	Title        string `json:"title"`
	Link         string `json:"link"`
	OriginalLink string `json:"originallink"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
}

// PublishedAt parses the item's publication timestamp.
func (it Item) PublishedAt() (time.Time, error) {
	return time.Parse(time.RFC1123Z, it.PubDate)
}

// searchResponse is the provider's response envelope.
type searchResponse struct {
	Total   int    `json:"total"`
	Start   int    `json:"start"`
	Display int    `json:"display"`
	Items   []Item `json:"items"`
}

// NaverClient calls the Naver news search API with retry, pacing, and error
// classification.
type NaverClient struct {
	httpClient *http.Client
	endpoint   string
	resource   string
	sort       string
	creds      config.Credentials
	api        config.APIConfig
	pacer      *Pacer
	logger     *logger.Logger
}

// NewNaverClient creates a search client from the engine configuration.
func NewNaverClient(cfg *config.Config, creds config.Credentials, log *logger.Logger) *NaverClient {
	return &NaverClient{
		httpClient: &http.Client{
			Timeout: cfg.Collection.GetTimeout(),
		},
		endpoint: cfg.API.SearchEndpoint,
		resource: "news",
		sort:     cfg.API.Sort,
		creds:    creds,
		api:      cfg.API,
		pacer:    NewPacer(cfg.Collection.CallDelay()),
		logger:   log,
	}
}

// FetchPage fetches one page of results. Retryable failures are attempted up
// to the configured retry count with exponential backoff between attempts;
// the pacer's inter-call delay applies to every attempt. Auth and malformed
// failures surface immediately.
func (c *NaverClient) FetchPage(ctx context.Context, query string, offset, pageSize int) (*Page, error) {
	if pageSize < 1 || pageSize > PageMax {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, pageSize)
	}

	if offset < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOffset, offset)
	}

	var lastErr error

	for attempt := 1; attempt <= c.api.RetryCount; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pacing wait canceled: %w", err)
		}

		page, err := c.doFetch(ctx, query, offset, pageSize)
		if err == nil {
			return page, nil
		}

		if !IsRetryable(err) {
			return nil, err
		}

		lastErr = err

		if c.logger != nil {
			c.logger.Warn(fmt.Sprintf("Search call failed (attempt %d/%d): %v", attempt, c.api.RetryCount, err))
		}

		if attempt < c.api.RetryCount {
			if err := sleepContext(ctx, c.api.GetRetryDelay(attempt)); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", c.api.RetryCount, lastErr)
}

// doFetch performs a single request and classifies its outcome.
func (c *NaverClient) doFetch(ctx context.Context, query string, offset, pageSize int) (*Page, error) {
	endpoint := fmt.Sprintf("%s/%s.json", strings.TrimRight(c.endpoint, "/"), c.resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(pageSize))
	params.Set("start", strconv.Itoa(offset))
	params.Set("sort", c.sort)
	req.URL.RawQuery = params.Encode()

	req.Header = utils.NewHTTPHelper().BuildHeaders(map[string]string{
		"X-Naver-Client-Id":     c.creds.ClientID,
		"X-Naver-Client-Secret": c.creds.ClientSecret,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request canceled: %w", ctx.Err())
		}

		return nil, &StatusError{Kind: ErrTransient, Message: err.Error()}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	// Limit response size to 10MB
	reader := io.LimitReader(resp.Body, 10*1024*1024)

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &StatusError{Kind: ErrTransient, Message: fmt.Sprintf("failed to read response body: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, wrapStatus(resp.StatusCode, body)
	}

	var raw searchResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &StatusError{Kind: ErrMalformedResponse, Status: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	if c.sort == SortDate {
		if err := assertNonIncreasingDates(raw.Items); err != nil {
			return nil, err
		}
	}

	return &Page{Total: raw.Total, Items: raw.Items}, nil
}

// assertNonIncreasingDates verifies the date ordering the early-stop depends
// on. Items with unparseable dates are skipped here; the collector drops them
// later. An out-of-order sequence fails the call loudly instead of letting
// the quarter boundary check terminate too early or too late.
func assertNonIncreasingDates(items []Item) error {
	var prev time.Time

	havePrev := false

	for _, it := range items {
		ts, err := it.PublishedAt()
		if err != nil {
			continue
		}

		if havePrev && ts.After(prev) {
			return &StatusError{
				Kind:    ErrMalformedResponse,
				Message: fmt.Sprintf("dates out of order: %s after %s", it.PubDate, prev.Format(time.RFC1123Z)),
			}
		}

		prev = ts
		havePrev = true
	}

	return nil
}

// sleepContext waits for the backoff delay unless the context ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
