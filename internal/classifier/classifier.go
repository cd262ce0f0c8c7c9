// Package classifier decides whether a user query deserves validation.
//
// Greetings, small talk and keyboard noise carry no factual claim, so the
// validator short-circuits them. Classification is pattern based: every
// pattern that matches votes with its weight and the heaviest one wins.
package classifier

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// QueryType is the detected kind of a user query.
type QueryType string

const (
	TypeGreeting      QueryType = "greeting"
	TypeSmallTalk     QueryType = "small_talk"
	TypeTypo          QueryType = "typo"
	TypeQuestion      QueryType = "question"
	TypeCommand       QueryType = "command"
	TypeClarification QueryType = "clarification"
)

// SkipsValidation reports whether responses to this kind of query are
// returned without checking.
func (t QueryType) SkipsValidation() bool {
	switch t {
	case TypeGreeting, TypeSmallTalk, TypeTypo:
		return true
	default:
		return false
	}
}

// Classification is the classifier verdict for one query.
type Classification struct {
	Type           QueryType
	Confidence     float64
	SkipValidation bool
}

// Pattern is a weighted regular expression mapped to a query type.
type Pattern struct {
	Name   string
	Type   QueryType
	Regex  string
	Weight float64
}

// maxTypoRunes is the longest unmatched query treated as a typo.
const maxTypoRunes = 2

// Confidence for verdicts that are not pattern matches.
const (
	noLettersConfidence = 0.95
	shortTypoConfidence = 0.7
	fallbackConfidence  = 0.5
)

// DefaultPatterns returns the built-in query patterns.
func DefaultPatterns() []Pattern {
	return []Pattern{
		// Whole-query pleasantries
		{Name: "greeting", Type: TypeGreeting, Regex: `(?i)^\s*(hi|hello|hey|hiya|howdy|greetings|yo|good (morning|afternoon|evening|day))( there| all| everyone| team)?[\s!.,]*$`, Weight: 0.95},
		{Name: "how_are_you", Type: TypeSmallTalk, Regex: `(?i)^\s*(hi|hello|hey)?[\s,]*(how are you|how's it going|how is it going|what's up|whats up)( doing)?( today)?[\s!?.]*$`, Weight: 0.9},
		{Name: "thanks", Type: TypeSmallTalk, Regex: `(?i)^\s*(thanks|thank you|thx|ty|cheers)( so much| a lot| very much)?[\s!.,]*$`, Weight: 0.9},
		{Name: "acknowledgement", Type: TypeSmallTalk, Regex: `(?i)^\s*(ok|okay|cool|great|nice|got it|sounds good|bye|goodbye|see you)[\s!.,]*$`, Weight: 0.85},

		// Follow-ups on a previous answer
		{Name: "what_do_you_mean", Type: TypeClarification, Regex: `(?i)\b(what do you mean|what does that mean|can you clarify|could you clarify|i don'?t understand|say that again|can you rephrase|could you elaborate)\b`, Weight: 0.8},

		// Imperatives
		{Name: "imperative", Type: TypeCommand, Regex: `(?i)^\s*(please\s+)?(show|list|create|run|delete|remove|add|update|generate|give|write|make|find|open|start|stop|summari[sz]e|tell|send|set|reset|cancel)\b`, Weight: 0.7},

		// Questions
		{Name: "question_mark", Type: TypeQuestion, Regex: `\?\s*$`, Weight: 0.6},
		{Name: "wh_word", Type: TypeQuestion, Regex: `(?i)^\s*(what|why|how|when|where|who|whom|which|can|could|should|is|are|do|does|did|will|would)\b`, Weight: 0.6},
	}
}

type compiledPattern struct {
	Pattern
	regex *regexp.Regexp
}

// Classifier is a heuristic query classifier. It is safe for concurrent use.
type Classifier struct {
	patterns []*compiledPattern
}

// New creates a classifier. Empty patterns mean DefaultPatterns. Patterns
// that fail to compile are skipped.
func New(patterns []Pattern) *Classifier {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}

	compiled := make([]*compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			continue
		}
		compiled = append(compiled, &compiledPattern{Pattern: p, regex: re})
	}
	return &Classifier{patterns: compiled}
}

// Classify returns the verdict for query. It never fails.
func (c *Classifier) Classify(_ context.Context, query string) Classification {
	q := strings.TrimSpace(query)

	// An empty query is validated, never skipped.
	if q == "" {
		return verdict(TypeQuestion, fallbackConfidence)
	}

	// Queries with digits ("2+2", "404?") are never typos.
	numeric := strings.IndexFunc(q, unicode.IsDigit) >= 0
	if !numeric && !hasLetter(q) {
		return verdict(TypeTypo, noLettersConfidence)
	}

	if best := c.findBestMatch(q); best != nil {
		return verdict(best.Type, best.Weight)
	}

	if !numeric && utf8.RuneCountInString(q) <= maxTypoRunes {
		return verdict(TypeTypo, shortTypoConfidence)
	}
	return verdict(TypeQuestion, fallbackConfidence)
}

// findBestMatch returns the heaviest matching pattern. Ties go to the
// pattern listed first.
func (c *Classifier) findBestMatch(q string) *compiledPattern {
	var best *compiledPattern
	for _, p := range c.patterns {
		if !p.regex.MatchString(q) {
			continue
		}
		if best == nil || p.Weight > best.Weight {
			best = p
		}
	}
	return best
}

func verdict(t QueryType, confidence float64) Classification {
	return Classification{Type: t, Confidence: confidence, SkipValidation: t.SkipsValidation()}
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
