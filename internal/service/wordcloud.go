package service

import (
	"sort"
	"strings"
	"unicode"

	"github.com/gizmohq/survey-api/internal/dto"
)

// defaultWordCloudLimit caps the number of terms returned per summary.
const defaultWordCloudLimit = 50

// DefaultStopWords lists the common English function words and discourse
// fillers excluded from word clouds.
var DefaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
	"is", "are", "was", "were", "be", "been", "have", "has", "had", "do", "does", "did",
	"will", "would", "could", "should", "may", "might", "must", "can", "this", "that",
	"these", "those", "i", "you", "he", "she", "it", "we", "they", "me", "him", "her",
	"us", "them", "my", "your", "his", "its", "our", "their", "very", "really",
	"quite", "just", "only", "also", "too", "so", "as", "if", "when", "where", "why",
	"how", "what", "who", "which", "there", "here", "now", "then", "than", "more",
	"most", "some", "any", "all", "both", "each", "every", "no", "not", "yes",
}

// WordCloudSummarizer turns free-text answers into a ranked term-frequency
// list for word-cloud rendering. The stop-word set is fixed at construction
// and never mutated afterwards.
type WordCloudSummarizer struct {
	stopWords map[string]struct{}
	limit     int
}

// NewWordCloudSummarizer builds a summarizer. A nil stop-word list selects
// DefaultStopWords; a non-positive limit selects the default of 50.
func NewWordCloudSummarizer(stopWords []string, limit int) *WordCloudSummarizer {
	if stopWords == nil {
		stopWords = DefaultStopWords
	}
	if limit <= 0 {
		limit = defaultWordCloudLimit
	}
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &WordCloudSummarizer{stopWords: set, limit: limit}
}

// Summarize tokenizes the texts and returns the most frequent terms in
// descending weight order. Ties keep the first-encountered term first.
//
// Tokens are maximal runs of word characters kept only when they consist
// entirely of ASCII letters and are at least three letters long; runs
// containing digits or underscores are dropped as noise. The ASCII-only
// rule is intentional and load-bearing for downstream compatibility.
func (s *WordCloudSummarizer) Summarize(texts []string) []dto.WordCloudEntry {
	joined := strings.ToLower(strings.Join(texts, " "))

	counts := make(map[string]int)
	var order []string
	for _, token := range tokenize(joined) {
		if _, stop := s.stopWords[token]; stop {
			continue
		}
		if _, seen := counts[token]; !seen {
			order = append(order, token)
		}
		counts[token]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	limit := s.limit
	if len(order) < limit {
		limit = len(order)
	}
	entries := make([]dto.WordCloudEntry, 0, limit)
	for _, token := range order[:limit] {
		entries = append(entries, dto.WordCloudEntry{Text: token, Weight: counts[token]})
	}
	return entries
}

// tokenize extracts candidate terms from lower-cased text. A run of word
// characters qualifies only when it is all ASCII letters with length >= 3.
func tokenize(text string) []string {
	var tokens []string
	start := -1
	valid := true

	flush := func(end int) {
		if start >= 0 && valid && end-start >= 3 {
			tokens = append(tokens, text[start:end])
		}
		start = -1
		valid = true
	}

	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
				valid = true
			}
			if r < 'a' || r > 'z' {
				valid = false
			}
			continue
		}
		flush(i)
	}
	flush(len(text))
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
