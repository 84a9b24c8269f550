package toolclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/osvaldoandrade/osintq/internal/metrics"
	"github.com/osvaldoandrade/osintq/internal/tracing"
	"github.com/osvaldoandrade/osintq/pkg/domain"
)

// SearchResult is one candidate page returned by the search tool.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ScrapedPage is the visible text of one fetched page.
type ScrapedPage struct {
	URL       string    `json:"url"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Client is the boundary to the three external collaborators. Each call is a
// single blocking request/response over HTTP with a bounded wait; there is no
// retry at this layer.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
	Scrape(ctx context.Context, url string, maxChars int) (*ScrapedPage, error)
	Extract(ctx context.Context, query, rawText, sourceURL string) ([]domain.Finding, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a Client against the tool service at baseURL. The
// timeout bounds every individual call.
func NewHTTPClient(baseURL string, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &httpClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

func (c *httpClient) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Msg: "query must not be empty"}
	}
	var out searchResponse
	if err := c.post(ctx, "search", searchRequest{Query: query, MaxResults: maxResults}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

type scrapeRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

func (c *httpClient) Scrape(ctx context.Context, url string, maxChars int) (*ScrapedPage, error) {
	var out ScrapedPage
	if err := c.post(ctx, "scrape", scrapeRequest{URL: url, MaxChars: maxChars}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type extractRequest struct {
	Query     string `json:"query"`
	RawText   string `json:"rawText"`
	SourceURL string `json:"sourceUrl,omitempty"`
}

type extractResponse struct {
	Findings []domain.Finding `json:"findings"`
}

func (c *httpClient) Extract(ctx context.Context, query, rawText, sourceURL string) ([]domain.Finding, error) {
	var out extractResponse
	if err := c.post(ctx, "extract", extractRequest{Query: query, RawText: rawText, SourceURL: sourceURL}, &out); err != nil {
		return nil, err
	}
	for _, f := range out.Findings {
		if f.SourceLink == "" || f.Summary == "" {
			return nil, &ProtocolError{Op: "extract", Err: errors.New("finding missing sourceLink or summary")}
		}
	}
	return out.Findings, nil
}

func (c *httpClient) post(ctx context.Context, op string, in any, out any) error {
	start := time.Now()
	err := c.doPost(ctx, op, in, out)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.ToolCallDurationSeconds.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	return err
}

func (c *httpClient) doPost(ctx context.Context, op string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tools/"+op, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	tracing.InjectHeaders(ctx, req.Header)

	resp, err := c.client.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		return &ValidationError{Msg: op + ": " + readErrorDetail(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Op: op, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProtocolError{Op: op, Err: err}
	}
	return nil
}

func readErrorDetail(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return "bad request"
}
