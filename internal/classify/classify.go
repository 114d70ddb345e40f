// Package classify scores whether a piece of text is a technical question and
// buckets it into a coarse domain using keyword vocabularies.
package classify

import (
	"regexp"
	"slices"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

const (
	// AcceptThreshold is the confidence a candidate must exceed to count as a
	// technical question.
	AcceptThreshold = 0.6

	patternBase   = 0.5
	noPatternBase = 0.2
	perKeyword    = 0.15
	keywordCap    = 0.45
	maxConfidence = 0.95
)

// Result is the outcome of classifying one candidate.
type Result struct {
	IsTechnical bool
	Confidence  float64
	// Category is empty unless IsTechnical is true.
	Category        DomainTag
	MatchedKeywords []string
}

// keyword is one dictionary entry with the domains that list it.
type keyword struct {
	text     string
	boundary *regexp.Regexp
	domains  []DomainTag
}

// Classifier holds immutable keyword and pattern tables. It is safe for
// concurrent use.
type Classifier struct {
	patterns []*regexp.Regexp
	keywords []keyword
	matcher  *ahocorasick.Matcher
}

// NewClassifier builds a Classifier from a vocabulary and an ordered list of
// question patterns. Patterns are matched against lowercased input.
func NewClassifier(vocab Vocabulary, patterns []*regexp.Regexp) *Classifier {
	byText := make(map[string]int)
	var keywords []keyword

	for _, tag := range Domains {
		words := slices.Clone(vocab[tag])
		slices.Sort(words)
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			if i, ok := byText[w]; ok {
				if !slices.Contains(keywords[i].domains, tag) {
					keywords[i].domains = append(keywords[i].domains, tag)
				}
				continue
			}
			byText[w] = len(keywords)
			keywords = append(keywords, keyword{
				text:     w,
				boundary: regexp.MustCompile(`(?:^|[^a-z0-9])` + regexp.QuoteMeta(w) + `(?:[^a-z0-9]|$)`),
				domains:  []DomainTag{tag},
			})
		}
	}

	dictionary := make([]string, len(keywords))
	for i, k := range keywords {
		dictionary[i] = k.text
	}

	return &Classifier{
		patterns: slices.Clone(patterns),
		keywords: keywords,
		matcher:  ahocorasick.NewStringMatcher(dictionary),
	}
}

// New returns a Classifier over the built-in vocabulary and patterns.
func New() *Classifier {
	return NewClassifier(DefaultVocabulary(), DefaultPatterns())
}

// Classify scores text. Confidence starts at 0.5 when a question pattern
// matches (0.2 otherwise), gains 0.15 per matched keyword up to 0.45, and is
// capped at 0.95. Text length is intentionally not factored in.
func (c *Classifier) Classify(text string) Result {
	lower := strings.ToLower(strings.TrimSpace(text))

	matched, counts := c.matchKeywords(lower)

	category := General
	best := 0
	for _, tag := range Domains {
		if counts[tag] > best {
			best = counts[tag]
			category = tag
		}
	}

	confidence := noPatternBase
	if c.hasPattern(lower) {
		confidence = patternBase
	}
	confidence += min(float64(len(matched))*perKeyword, keywordCap)
	confidence = min(confidence, maxConfidence)

	res := Result{
		IsTechnical:     confidence > AcceptThreshold,
		Confidence:      confidence,
		MatchedKeywords: matched,
	}
	if res.IsTechnical {
		res.Category = category
	}
	return res
}

func (c *Classifier) hasPattern(lower string) bool {
	for _, p := range c.patterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// matchKeywords returns each whole-word keyword found in lower once, in
// dictionary order, plus per-domain counts.
func (c *Classifier) matchKeywords(lower string) ([]string, map[DomainTag]int) {
	counts := make(map[DomainTag]int)
	if lower == "" || len(c.keywords) == 0 {
		return nil, counts
	}

	// The automaton reports substring hits; the boundary check rejects
	// "java" inside "javascript" and similar.
	hits := c.matcher.MatchThreadSafe([]byte(lower))
	slices.Sort(hits)
	hits = slices.Compact(hits)

	var matched []string
	for _, i := range hits {
		if i < 0 || i >= len(c.keywords) {
			continue
		}
		k := c.keywords[i]
		if !k.boundary.MatchString(lower) {
			continue
		}
		matched = append(matched, k.text)
		for _, tag := range k.domains {
			counts[tag]++
		}
	}
	return matched, counts
}
