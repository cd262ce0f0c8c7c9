package relevance

import (
	"regexp"
	"strings"

	"github.com/vezlo/ai-validator/internal/model"
)

// Token length floors. Response and source tokens must be longer than
// minContentToken; query tokens longer than minQueryToken.
const (
	minContentToken = 3
	minQueryToken   = 2

	// neutralScore is reported when there is nothing to measure.
	neutralScore = 0.5

	// lexicalValidThreshold is the relevance a response must exceed to be
	// considered grounded.
	lexicalValidThreshold = 0.3
)

// Unicode separators such as NBSP count as whitespace; \s alone is ASCII.
var nonWord = regexp.MustCompile(`[^\w\s\p{Z}]`)

// Lexical scores context relevance by token overlap. It is pure and total.
func Lexical(query, response string, sources []model.Source) model.ContextResult {
	contents := make([]string, len(sources))
	for i, s := range sources {
		contents[i] = s.Content
	}

	responseTokens := tokens(response, minContentToken)
	sourceSet := toSet(tokens(strings.Join(contents, " "), minContentToken))
	responseSet := toSet(responseTokens)
	queryTokens := tokens(query, minQueryToken)

	relevance := neutralScore
	if len(responseTokens) > 0 {
		relevance = min(1, float64(countIn(responseTokens, sourceSet))/float64(len(responseTokens)))
	}

	usage := neutralScore
	if len(queryTokens) > 0 {
		usage = float64(countIn(queryTokens, responseSet)) / float64(len(queryTokens))
	}

	return model.ContextResult{
		SourceRelevance: relevance,
		SourceUsageRate: usage,
		Valid:           relevance > lexicalValidThreshold,
		Method:          model.ContextMethodLexical,
	}
}

// tokens lowercases s, strips punctuation and returns whitespace-separated
// tokens longer than minLen bytes. Repeated tokens are kept.
func tokens(s string, minLen int) []string {
	normalized := nonWord.ReplaceAllString(strings.ToLower(s), "")
	fields := strings.Fields(normalized)
	out := fields[:0]
	for _, f := range fields {
		if len(f) > minLen {
			out = append(out, f)
		}
	}
	return out
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func countIn(tokens []string, set map[string]struct{}) int {
	n := 0
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			n++
		}
	}
	return n
}
