package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/osvaldoandrade/osintq/pkg/config"
	"github.com/osvaldoandrade/osintq/pkg/domain"
)

const resultsPage = `<html><body>
<div class="results">
  <div class="result results_links">
    <h2 class="result__title"><a class="result__a" href="https://example.com/one">First Result</a></h2>
    <a class="result__snippet" href="https://example.com/one">Snippet about the <b>first</b> page.</a>
  </div>
  <div class="result results_links">
    <h2 class="result__title"><a class="result__a" href="https://example.com/two">Second Result</a></h2>
    <a class="result__snippet" href="https://example.com/two">Second snippet.</a>
  </div>
  <div class="result results_links">
    <h2 class="result__title"><a class="result__a" href="javascript:void(0)">Bogus</a></h2>
  </div>
  <div class="result results_links">
    <h2 class="result__title"><a class="result__a" href="https://example.com/three">Third Result</a></h2>
  </div>
</div>
</body></html>`

func newTestRouter(cfg config.ToolsConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := NewService(cfg, nil)
	r := gin.New()
	r.POST("/v1/tools/search", svc.SearchHandler)
	r.POST("/v1/tools/scrape", svc.ScrapeHandler)
	r.POST("/v1/tools/extract", svc.ExtractHandler)
	r.GET("/v1/tools/health", svc.HealthHandler)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSearchParsesResults(t *testing.T) {
	var gotQuery string
	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, resultsPage)
	}))
	defer ddg.Close()

	r := newTestRouter(config.ToolsConfig{SearchBaseURL: ddg.URL, UserAgent: "test-agent"})
	w := doJSON(t, r, "/v1/tools/search", map[string]any{"query": "CVE:CVE-2024-3094", "maxResults": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	if gotQuery != "CVE:CVE-2024-3094" {
		t.Fatalf("upstream query = %q", gotQuery)
	}

	var resp struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("got %d results, want 3 (non-http hrefs skipped)", len(resp.Results))
	}
	if resp.Results[0].Title != "First Result" || resp.Results[0].URL != "https://example.com/one" {
		t.Fatalf("first result = %+v", resp.Results[0])
	}
	if resp.Results[0].Snippet != "Snippet about the first page." {
		t.Fatalf("first snippet = %q", resp.Results[0].Snippet)
	}
	if resp.Results[2].Snippet != "" {
		t.Fatalf("snippet-less result should have empty snippet, got %q", resp.Results[2].Snippet)
	}
}

func TestSearchHonorsMaxResults(t *testing.T) {
	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultsPage)
	}))
	defer ddg.Close()

	r := newTestRouter(config.ToolsConfig{SearchBaseURL: ddg.URL})
	w := doJSON(t, r, "/v1/tools/search", map[string]any{"query": "anything", "maxResults": 1})

	var resp struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(resp.Results))
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	r := newTestRouter(config.ToolsConfig{SearchBaseURL: "http://127.0.0.1:0"})
	w := doJSON(t, r, "/v1/tools/search", map[string]any{"query": "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSearchUpstreamFailure(t *testing.T) {
	ddg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ddg.Close()

	r := newTestRouter(config.ToolsConfig{SearchBaseURL: ddg.URL})
	w := doJSON(t, r, "/v1/tools/search", map[string]any{"query": "anything"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestScrapeStripsNonVisibleText(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><style>.x{color:red}</style><script>var x=1;</script></head>`+
			`<body><noscript>enable js</noscript><h1>Breach Report</h1><p>Credentials were leaked.</p></body></html>`)
	}))
	defer page.Close()

	r := newTestRouter(config.ToolsConfig{})
	w := doJSON(t, r, "/v1/tools/scrape", map[string]any{"url": page.URL, "maxChars": 6000})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}

	var resp struct {
		URL  string `json:"url"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, banned := range []string{"var x=1", "color:red", "enable js"} {
		if strings.Contains(resp.Text, banned) {
			t.Fatalf("text contains non-visible content %q: %q", banned, resp.Text)
		}
	}
	for _, want := range []string{"Breach Report", "Credentials were leaked."} {
		if !strings.Contains(resp.Text, want) {
			t.Fatalf("text missing %q: %q", want, resp.Text)
		}
	}
}

func TestScrapeTruncatesToMaxChars(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><p>%s</p></body></html>", strings.Repeat("a", 500))
	}))
	defer page.Close()

	r := newTestRouter(config.ToolsConfig{})
	w := doJSON(t, r, "/v1/tools/scrape", map[string]any{"url": page.URL, "maxChars": 100})

	var resp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len([]rune(resp.Text)) != 100 {
		t.Fatalf("text length = %d runes, want 100", len([]rune(resp.Text)))
	}
}

func TestScrapeRejectsBadURL(t *testing.T) {
	r := newTestRouter(config.ToolsConfig{})
	for _, u := range []string{"", "ftp://example.com/x", "not a url"} {
		w := doJSON(t, r, "/v1/tools/scrape", map[string]any{"url": u})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("url %q: status = %d, want 400", u, w.Code)
		}
	}
}

func TestScrapeUpstreamFailure(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer page.Close()

	r := newTestRouter(config.ToolsConfig{})
	w := doJSON(t, r, "/v1/tools/scrape", map[string]any{"url": page.URL})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestExtractReturnsFinding(t *testing.T) {
	var gotModel string
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Stream bool `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode chat request: %v", err)
		}
		gotModel = req.Model
		if req.Stream {
			t.Error("stream should be false")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "The host leaked credentials in 2024."},
		})
	}))
	defer ollama.Close()

	r := newTestRouter(config.ToolsConfig{OllamaBaseURL: ollama.URL, OllamaModel: "llama3"})
	w := doJSON(t, r, "/v1/tools/extract", map[string]any{
		"query":     "id:acme-corp",
		"rawText":   "some page text",
		"sourceUrl": "https://breach.example.com/report",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	if gotModel != "llama3" {
		t.Fatalf("model = %q", gotModel)
	}

	var resp struct {
		Findings []domain.Finding `json:"findings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(resp.Findings))
	}
	f := resp.Findings[0]
	if f.SourceName != "breach.example.com" {
		t.Fatalf("sourceName = %q", f.SourceName)
	}
	if f.SourceLink != "https://breach.example.com/report" {
		t.Fatalf("sourceLink = %q", f.SourceLink)
	}
	if f.Summary != "The host leaked credentials in 2024." {
		t.Fatalf("summary = %q", f.Summary)
	}
	if f.FoundAt.IsZero() {
		t.Fatal("foundAt not set")
	}
}

func TestExtractNoRelevantInformation(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "No clearly relevant information."},
		})
	}))
	defer ollama.Close()

	r := newTestRouter(config.ToolsConfig{OllamaBaseURL: ollama.URL, OllamaModel: "llama3"})
	w := doJSON(t, r, "/v1/tools/extract", map[string]any{
		"query": "phone:+15551234567", "rawText": "text", "sourceUrl": "https://example.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Findings []domain.Finding `json:"findings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Findings) != 0 {
		t.Fatalf("got %d findings, want 0", len(resp.Findings))
	}
}

func TestExtractEmptyTextSkipsModel(t *testing.T) {
	called := false
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ollama.Close()

	r := newTestRouter(config.ToolsConfig{OllamaBaseURL: ollama.URL, OllamaModel: "llama3"})
	w := doJSON(t, r, "/v1/tools/extract", map[string]any{
		"query": "anything", "rawText": "   ", "sourceUrl": "https://example.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if called {
		t.Fatal("model should not be called for empty text")
	}
}

func TestExtractUpstreamFailure(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ollama.Close()

	r := newTestRouter(config.ToolsConfig{OllamaBaseURL: ollama.URL, OllamaModel: "llama3"})
	w := doJSON(t, r, "/v1/tools/extract", map[string]any{
		"query": "anything", "rawText": "text", "sourceUrl": "https://example.com",
	})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(config.ToolsConfig{})
	req := httptest.NewRequest(http.MethodGet, "/v1/tools/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
