package tools

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/html"
)

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// SearchHandler performs a web search against DuckDuckGo HTML results. This
// is intentionally simple and avoids any proprietary search APIs.
func (s *Service) SearchHandler(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must not be empty"})
		return
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}

	results, err := s.search(c, req.Query, req.MaxResults)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("search request failed: %v", err)})
		return
	}
	c.JSON(http.StatusOK, searchResponse{Results: results})
}

func (s *Service) search(c *gin.Context, query string, maxResults int) ([]searchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("t", "h_")
	params.Set("ia", "web")

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, s.cfg.SearchBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search provider returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseSearchResults(doc, maxResults), nil
}

// parseSearchResults extracts result links (a.result__a) and their snippets
// (.result__snippet inside the enclosing div.result) from a DuckDuckGo HTML
// results page.
func parseSearchResults(doc *html.Node, maxResults int) []searchResult {
	results := make([]searchResult, 0, maxResults)
	anchors := findAll(doc, func(n *html.Node) bool {
		return n.Data == "a" && hasClass(n, "result__a")
	})
	for _, a := range anchors {
		href := attr(a, "href")
		if href == "" {
			continue
		}
		if u, err := url.Parse(href); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}

		snippet := ""
		if result := closest(a, func(n *html.Node) bool { return n.Data == "div" && hasClass(n, "result") }); result != nil {
			if sn := findFirst(result, func(n *html.Node) bool { return hasClass(n, "result__snippet") }); sn != nil {
				snippet = textContent(sn, " ")
			}
		}

		results = append(results, searchResult{
			Title:   textContent(a, " "),
			URL:     href,
			Snippet: snippet,
		})
		if len(results) >= maxResults {
			break
		}
	}
	return results
}
