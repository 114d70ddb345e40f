// Package question pulls candidate questions out of spoken utterances. Speech
// rarely carries punctuation, so besides literal "?" sentences it also accepts
// sentences that open like a question or a request ("tell me", "explain").
package question

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// minSentenceLen drops fragments such as "ok" or "so" left over by splitting.
	minSentenceLen = 3
	// maxFallbackLen bounds the whole-utterance fallback candidate.
	maxFallbackLen = 150
)

// Starters are the interrogative words and conversational openers that make a
// sentence a candidate question.
var Starters = []string{
	"how", "what", "why", "when", "where", "which", "who",
	"can", "could", "would", "should",
	"is", "are", "am", "was", "were",
	"do", "does", "did",
	"has", "have", "had",
	"will", "shall",
	"tell me", "explain", "describe", "show me", "help me understand",
	"help me", "i need", "i want to know", "walk me through",
}

// ConversationalPhrases mark text that asks for something without being
// phrased as a question.
var ConversationalPhrases = []string{
	"tell me", "i need", "can you", "could you", "would you",
	"how do", "how does", "how to", "how would",
	"what is", "what are", "what's",
	"explain", "walk me through", "help me", "i want to know",
	"i'd like to know", "difference between",
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Extractor finds candidate questions in an utterance.
type Extractor struct {
	starter       *regexp.Regexp
	conversations []string
}

// NewExtractor builds an Extractor over the given starters and conversational
// phrases. Both lists are matched case-insensitively.
func NewExtractor(starters, conversational []string) *Extractor {
	alts := make([]string, 0, len(starters))
	for _, s := range starters {
		alts = append(alts, regexp.QuoteMeta(strings.ToLower(s)))
	}
	// Word characters include the apostrophe so "don't" never matches "do".
	pattern := `(?:^|[^\p{L}\p{N}'])(?:` + strings.Join(alts, "|") + `)(?:[^\p{L}\p{N}']|$)`

	phrases := make([]string, 0, len(conversational))
	for _, p := range conversational {
		phrases = append(phrases, strings.ToLower(p))
	}

	return &Extractor{
		starter:       regexp.MustCompile(pattern),
		conversations: phrases,
	}
}

// New returns an Extractor using Starters and ConversationalPhrases.
func New() *Extractor {
	return NewExtractor(Starters, ConversationalPhrases)
}

// Extract returns candidate questions in order of appearance. Sentences that
// were punctuated with "?" are returned with the "?" restored. When nothing
// qualifies, a short utterance is returned whole as a single candidate.
func (e *Extractor) Extract(utterance string) []string {
	var candidates []string

	for _, piece := range sentenceSplit.Split(utterance, -1) {
		sentence := strings.TrimSpace(piece)
		if utf8.RuneCountInString(sentence) < minSentenceLen {
			continue
		}

		if strings.Contains(utterance, sentence+"?") {
			candidates = append(candidates, sentence+"?")
			continue
		}

		if e.startsQuestion(sentence) {
			candidates = append(candidates, sentence)
		}
	}

	if len(candidates) > 0 {
		return candidates
	}

	whole := strings.TrimSpace(utterance)
	if whole != "" && utf8.RuneCountInString(whole) < maxFallbackLen {
		return []string{whole}
	}
	return nil
}

// LooksConversational reports whether text contains one of the conversational
// request phrases anywhere.
func (e *Extractor) LooksConversational(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range e.conversations {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func (e *Extractor) startsQuestion(sentence string) bool {
	return e.starter.MatchString(strings.ToLower(sentence))
}
