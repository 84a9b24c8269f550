package domain

import "time"

// Finding is one extracted fact about the query, sourced from a single page.
type Finding struct {
	SourceName string    `json:"sourceName"`
	FoundAt    time.Time `json:"foundAt"`
	SourceLink string    `json:"sourceLink"`
	Summary    string    `json:"summary"`
}

// dedupPrefixLen is the number of leading summary runes that participate in
// the dedup key. The extraction model phrases the same fact slightly
// differently across calls, so exact-equality dedup would keep near-copies.
const dedupPrefixLen = 80

type dedupKey struct {
	sourceName string
	sourceLink string
	prefix     string
}

func (f Finding) key() dedupKey {
	summary := []rune(f.Summary)
	if len(summary) > dedupPrefixLen {
		summary = summary[:dedupPrefixLen]
	}
	return dedupKey{sourceName: f.SourceName, sourceLink: f.SourceLink, prefix: string(summary)}
}

// DeduplicateFindings returns the first-seen representatives of findings,
// preserving original relative order.
func DeduplicateFindings(findings []Finding) []Finding {
	seen := make(map[dedupKey]struct{}, len(findings))
	unique := make([]Finding, 0, len(findings))
	for _, f := range findings {
		k := f.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, f)
	}
	return unique
}
