package tools

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/html"
)

type scrapeRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

type scrapeResponse struct {
	URL       string    `json:"url"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// ScrapeHandler fetches a page and returns its visible text, truncated to
// maxChars.
func (s *Service) ScrapeHandler(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if u, err := url.Parse(req.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be a valid http(s) URL"})
		return
	}
	if req.MaxChars <= 0 {
		req.MaxChars = 8000
	}

	httpReq, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, req.URL, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
		return
	}
	httpReq.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("scrape request failed: %v", err)})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("scrape target returned status %d", resp.StatusCode)})
		return
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("scrape parse failed: %v", err)})
		return
	}

	text := truncate(textContent(doc, "\n"), req.MaxChars)

	c.JSON(http.StatusOK, scrapeResponse{URL: req.URL, Text: text, FetchedAt: time.Now().UTC()})
}

// truncate cuts at maxChars characters without splitting a rune.
func truncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars])
}
