// Package suggest implements the fuzzy name-suggestion index used for
// list-name lookups: prefix, substring and similarity scoring over a small
// candidate set, returning the top matches with their primary keys.
package suggest

import (
	"sort"
	"strings"
	"unicode"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier substring hits score higher)
	ScorePositionBonus = 10.0
)

// Entry is one candidate in the index.
type Entry struct {
	PK   any
	Text string
}

// Candidate is a scored suggestion.
type Candidate struct {
	PK    any
	Text  string
	Score float64
}

// Top scores every entry against the query and returns up to limit
// candidates ordered by descending score. Entries that do not match at all
// are dropped.
func Top(query string, limit int, entries []Entry) []Candidate {
	query = normalize(query)
	if query == "" {
		return nil
	}

	candidates := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		score := score(query, normalize(entry.Text))
		if score == 0.0 {
			continue
		}
		candidates = append(candidates, Candidate{
			PK:    entry.PK,
			Text:  entry.Text,
			Score: score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// score rates one normalized candidate against a normalized query.
func score(query, text string) float64 {
	if query == "" || text == "" {
		return 0.0
	}

	// Exact match
	if query == text {
		return ScoreExactMatch
	}

	// Prefix match
	if strings.HasPrefix(text, query) {
		return ScorePrefixMatch
	}

	// Substring match
	if idx := strings.Index(text, query); idx != -1 {
		// Earlier substring matches get higher score
		bonus := ScorePositionBonus * (1.0 - float64(idx)/float64(len(text)))
		return ScoreSubstringMatch + bonus
	}

	// Fuzzy match
	similarity := calculateSimilarity(query, text)
	if similarity > 0.5 {
		return ScoreFuzzyMatch * similarity
	}

	return 0.0
}

// calculateSimilarity calculates fuzzy similarity between two strings:
// the ratio of query characters present in the candidate.
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0.0
	}

	matches := 0
	for _, c := range s1 {
		if strings.ContainsRune(s2, c) {
			matches++
		}
	}

	return float64(matches) / float64(len(s1))
}

// normalize lowercases and strips everything but letters, digits and spaces.
func normalize(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, s))
}
