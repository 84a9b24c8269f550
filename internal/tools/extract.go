package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osvaldoandrade/osintq/pkg/domain"
)

const extractSystemPrompt = "You are an OSINT analyst. Given a search query and the raw text of a web page, " +
	"summarize only the information on the page that is clearly relevant to the query. " +
	"Be factual and concise. If the page contains no clearly relevant information, " +
	"reply with exactly: no clearly relevant information."

type extractRequest struct {
	Query     string `json:"query"`
	RawText   string `json:"rawText"`
	SourceURL string `json:"sourceUrl"`
}

type extractResponse struct {
	Findings []domain.Finding `json:"findings"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// ExtractHandler asks the local model to distill the scraped page text into a
// finding. It returns at most one finding per page; an explicit
// "no clearly relevant information" verdict yields an empty list rather than
// an error.
func (s *Service) ExtractHandler(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must not be empty"})
		return
	}
	if strings.TrimSpace(req.RawText) == "" {
		c.JSON(http.StatusOK, extractResponse{Findings: []domain.Finding{}})
		return
	}

	content, err := s.chat(c, req.Query, req.RawText)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("extract request failed: %v", err)})
		return
	}

	content = strings.TrimSpace(content)
	if content == "" || isNoInformationVerdict(content) {
		c.JSON(http.StatusOK, extractResponse{Findings: []domain.Finding{}})
		return
	}

	c.JSON(http.StatusOK, extractResponse{Findings: []domain.Finding{{
		SourceName: sourceName(req.SourceURL),
		FoundAt:    time.Now().UTC(),
		SourceLink: req.SourceURL,
		Summary:    content,
	}}})
}

func (s *Service) chat(c *gin.Context, query, rawText string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: s.cfg.OllamaModel,
		Messages: []chatMessage{
			{Role: "system", Content: extractSystemPrompt},
			{Role: "user", Content: "Query: " + query + "\n\nPage text:\n" + rawText},
		},
		Stream: false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost,
		strings.TrimSuffix(s.cfg.OllamaBaseURL, "/")+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("model response unparseable: %w", err)
	}
	return out.Message.Content, nil
}

func isNoInformationVerdict(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "no clearly relevant information") ||
		strings.Contains(lower, "no relevant information")
}

// sourceName derives a display name from the page URL host, falling back to a
// placeholder when the URL does not parse.
func sourceName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return "unknown-source"
}
