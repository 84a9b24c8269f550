package toolclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSearchEmptyQueryFailsWithoutCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.Search(context.Background(), "   ", 5)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if called {
		t.Fatal("empty query must not reach the tool service")
	}
}

func TestSearchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tools/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req struct {
			Query      string `json:"query"`
			MaxResults int    `json:"maxResults"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Query != "CVE:CVE-2024-3094" || req.MaxResults != 3 {
			t.Errorf("request = %+v", req)
		}
		fmt.Fprint(w, `{"results":[{"title":"t","url":"https://example.com","snippet":"s"}]}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	results, err := c.Search(context.Background(), "CVE:CVE-2024-3094", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://example.com" {
		t.Fatalf("results = %+v", results)
	}
}

func TestBadRequestMapsToValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"query must not be empty"}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.Search(context.Background(), "x", 1)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestServerErrorMapsToUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.Scrape(context.Background(), "https://example.com", 100)
	var uerr *UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if uerr.Status != http.StatusBadGateway {
		t.Fatalf("status = %d", uerr.Status)
	}
}

func TestTransportFailureMapsToUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.Scrape(context.Background(), "https://example.com", 100)
	var uerr *UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
}

func TestMalformedResponseMapsToProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"findings": not-json`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.Extract(context.Background(), "q", "text", "https://example.com")
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ProtocolError", err)
	}
}

func TestExtractRejectsIncompleteFinding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"findings":[{"sourceName":"example.com","summary":"missing link"}]}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.Extract(context.Background(), "q", "text", "https://example.com")
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ProtocolError", err)
	}
}

func TestExtractSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string `json:"query"`
			RawText   string `json:"rawText"`
			SourceURL string `json:"sourceUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.SourceURL != "https://example.com/page" {
			t.Errorf("sourceUrl = %q", req.SourceURL)
		}
		fmt.Fprint(w, `{"findings":[{"sourceName":"example.com","foundAt":"2026-08-24T10:00:00Z","sourceLink":"https://example.com/page","summary":"s"}]}`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	findings, err := c.Extract(context.Background(), "q", "text", "https://example.com/page")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(findings) != 1 || findings[0].SourceLink != "https://example.com/page" {
		t.Fatalf("findings = %+v", findings)
	}
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client going away;
		// with unread bytes the request context is never canceled.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, "q", 1)
	var uerr *UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
}
