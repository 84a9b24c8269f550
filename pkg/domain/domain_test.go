package domain

import (
	"strings"
	"testing"
	"time"
)

func TestBuildQuerySingleField(t *testing.T) {
	p := QueryPayload{CVE: "CVE-2023-1"}
	if got := p.BuildQuery(); got != "CVE:CVE-2023-1" {
		t.Errorf("Expected 'CVE:CVE-2023-1', got %q", got)
	}
}

func TestBuildQueryFallback(t *testing.T) {
	p := QueryPayload{}
	if got := p.BuildQuery(); got != DefaultQuery {
		t.Errorf("Expected fallback %q, got %q", DefaultQuery, got)
	}
}

func TestBuildQueryMultipleFields(t *testing.T) {
	p := QueryPayload{PhoneNumber: "555", Keyword: "malware"}
	if got := p.BuildQuery(); got != "phone:555 malware" {
		t.Errorf("Expected 'phone:555 malware', got %q", got)
	}
}

func TestBuildQueryFieldOrder(t *testing.T) {
	p := QueryPayload{PhoneNumber: "555", Identifier: "abc", CVE: "CVE-1", Keyword: "kw"}
	if got := p.BuildQuery(); got != "phone:555 id:abc CVE:CVE-1 kw" {
		t.Errorf("Unexpected query order: %q", got)
	}
}

func TestBuildQueryTrimsWhitespace(t *testing.T) {
	p := QueryPayload{Keyword: "  "}
	if got := p.BuildQuery(); got != DefaultQuery {
		t.Errorf("Whitespace-only field should fall back, got %q", got)
	}
}

func TestDeduplicatePrefixMatch(t *testing.T) {
	long := strings.Repeat("hello world ", 10) // > 80 chars
	in := []Finding{
		{SourceName: "A", SourceLink: "L", Summary: long + "first phrasing"},
		{SourceName: "A", SourceLink: "L", Summary: long + "second phrasing"},
		{SourceName: "B", SourceLink: "L", Summary: "other"},
	}
	out := DeduplicateFindings(in)
	if len(out) != 2 {
		t.Fatalf("Expected 2 unique findings, got %d", len(out))
	}
	if out[0].Summary != in[0].Summary {
		t.Errorf("Expected first-seen representative to survive")
	}
	if out[1].SourceName != "B" {
		t.Errorf("Expected B entry second, got %q", out[1].SourceName)
	}
}

func TestDeduplicateShortSummariesDiffer(t *testing.T) {
	in := []Finding{
		{SourceName: "A", SourceLink: "L", Summary: "alpha"},
		{SourceName: "A", SourceLink: "L", Summary: "beta"},
	}
	if out := DeduplicateFindings(in); len(out) != 2 {
		t.Errorf("Distinct short summaries must both survive, got %d", len(out))
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	in := []Finding{
		{SourceName: "A", SourceLink: "L1", Summary: "x"},
		{SourceName: "A", SourceLink: "L1", Summary: "x"},
		{SourceName: "A", SourceLink: "L2", Summary: "x"},
	}
	once := DeduplicateFindings(in)
	twice := DeduplicateFindings(once)
	if len(once) != len(twice) {
		t.Fatalf("Dedup not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("Entry %d changed across dedup passes", i)
		}
	}
}

func TestDeduplicateEmpty(t *testing.T) {
	if out := DeduplicateFindings(nil); len(out) != 0 {
		t.Errorf("Expected empty result, got %d", len(out))
	}
}

func TestTaskStateTerminal(t *testing.T) {
	cases := map[TaskState]bool{
		StatePending:   false,
		StateRunning:   false,
		StateCompleted: true,
		StateFailed:    true,
	}
	for state, want := range cases {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, got, want)
		}
	}
}

func TestFindingDedupKeyUsesRunes(t *testing.T) {
	// 80 multibyte runes followed by divergent tails must still collide.
	prefix := strings.Repeat("é", dedupPrefixLen)
	in := []Finding{
		{SourceName: "A", SourceLink: "L", Summary: prefix + "tail-one", FoundAt: time.Now()},
		{SourceName: "A", SourceLink: "L", Summary: prefix + "tail-two", FoundAt: time.Now()},
	}
	if out := DeduplicateFindings(in); len(out) != 1 {
		t.Errorf("Expected rune-prefix collision to dedup, got %d entries", len(out))
	}
}
