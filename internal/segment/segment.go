// Package segment turns finalized transcript fragments into registered
// questions. It remembers which speech it has already analysed because
// continuous recognizers often re-deliver finalized spans.
package segment

import (
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jwulff/prompter/internal/classify"
	"github.com/jwulff/prompter/internal/registry"
	"github.com/jwulff/prompter/internal/similarity"
)

// minCandidateLen is the length a candidate must exceed to be classified.
const minCandidateLen = 5

// ProcessedSegment is a finalized fragment accepted as new text.
type ProcessedSegment struct {
	Text   string
	SeenAt time.Time
}

// Extractor finds candidate questions in an utterance.
type Extractor interface {
	Extract(utterance string) []string
	LooksConversational(text string) bool
}

// Classifier scores one candidate.
type Classifier interface {
	Classify(text string) classify.Result
}

// Sink accepts technical candidates, returning false for duplicates.
type Sink interface {
	Insert(text string, res classify.Result) (registry.DetectedQuestion, bool)
}

// Segmenter runs the fragment → candidate → classification → registry
// pipeline. It is not safe for concurrent use.
type Segmenter struct {
	extractor  Extractor
	classifier Classifier
	sink       Sink
	logger     *slog.Logger
	now        func() time.Time

	segments []ProcessedSegment
}

// New returns a Segmenter feeding sink. A nil logger discards logs.
func New(extractor Extractor, classifier Classifier, sink Sink, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Segmenter{
		extractor:  extractor,
		classifier: classifier,
		sink:       sink,
		logger:     logger,
		now:        time.Now,
	}
}

// OnFinalFragment processes one finalized fragment and returns the questions
// it added to the sink. A fragment similar to one already processed is
// ignored.
func (s *Segmenter) OnFinalFragment(text string) []registry.DetectedQuestion {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	for _, seg := range s.segments {
		if similarity.Similar(text, seg.Text) {
			s.logger.Debug("segment_redelivered", "text", text)
			return nil
		}
	}
	s.segments = append(s.segments, ProcessedSegment{Text: text, SeenAt: s.now()})

	var added []registry.DetectedQuestion
	for _, candidate := range s.candidates(text) {
		res := s.classifier.Classify(candidate)
		if !res.IsTechnical {
			s.logger.Debug("candidate_rejected", "text", candidate, "confidence", res.Confidence)
			continue
		}
		q, ok := s.sink.Insert(candidate, res)
		if !ok {
			s.logger.Debug("question_duplicate", "text", candidate)
			continue
		}
		s.logger.Info("question_detected",
			"id", q.ID,
			"category", string(q.Category),
			"confidence", q.Confidence,
		)
		added = append(added, q)
	}
	return added
}

// candidates keeps extracted candidates longer than minCandidateLen. The
// whole text stands in only when extraction found nothing at all.
func (s *Segmenter) candidates(text string) []string {
	extracted := s.extractor.Extract(text)
	if len(extracted) == 0 {
		if s.extractor.LooksConversational(text) && utf8.RuneCountInString(text) > minCandidateLen {
			return []string{text}
		}
		return nil
	}

	var out []string
	for _, c := range extracted {
		if utf8.RuneCountInString(c) > minCandidateLen {
			out = append(out, c)
		}
	}
	return out
}

// Segments returns the processed segments in arrival order.
func (s *Segmenter) Segments() []ProcessedSegment {
	out := make([]ProcessedSegment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Reset forgets every processed segment. The sink is left untouched.
func (s *Segmenter) Reset() {
	s.segments = nil
}
