// Package registry keeps the ordered, de-duplicated list of detected
// questions and which one is selected.
package registry

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jwulff/prompter/internal/classify"
	"github.com/jwulff/prompter/internal/similarity"
)

// DetectedQuestion is an accepted technical question. It is never modified
// after creation.
type DetectedQuestion struct {
	ID         string
	Text       string
	Timestamp  string
	CapturedAt time.Time
	Category   classify.DomainTag
	Confidence float64
}

// Registry is the session's question list. It is not safe for concurrent use;
// the UI mutates it from its single update loop.
type Registry struct {
	questions []DetectedQuestion
	selected  int
	now       func() time.Time
}

// New returns an empty Registry with nothing selected.
func New() *Registry {
	return &Registry{selected: -1, now: time.Now}
}

// Insert adds text as a new question unless an existing entry is similar to
// it. The accepted question becomes the selection.
func (r *Registry) Insert(text string, res classify.Result) (DetectedQuestion, bool) {
	for _, q := range r.questions {
		if similarity.Similar(q.Text, text) {
			return DetectedQuestion{}, false
		}
	}

	now := r.now()
	q := DetectedQuestion{
		ID:         newID(),
		Text:       text,
		Timestamp:  now.Format("15:04:05"),
		CapturedAt: now,
		Category:   res.Category,
		Confidence: res.Confidence,
	}
	r.questions = append(r.questions, q)
	r.selected = len(r.questions) - 1
	return q, true
}

// Select moves the selection to index. Out-of-range indexes are ignored.
func (r *Registry) Select(index int) {
	if index < 0 || index >= len(r.questions) {
		return
	}
	r.selected = index
}

// SelectedIndex returns the selected position, or -1 when nothing is selected.
func (r *Registry) SelectedIndex() int {
	return r.selected
}

// Selected returns the selected question, if any.
func (r *Registry) Selected() (DetectedQuestion, bool) {
	if r.selected < 0 {
		return DetectedQuestion{}, false
	}
	return r.questions[r.selected], true
}

// Questions returns a copy of the questions in insertion order.
func (r *Registry) Questions() []DetectedQuestion {
	return slices.Clone(r.questions)
}

// Len returns the number of questions.
func (r *Registry) Len() int {
	return len(r.questions)
}

// Clear removes every question and resets the selection.
func (r *Registry) Clear() {
	r.questions = nil
	r.selected = -1
}

// newID returns a time-ordered identifier so IDs sort by capture order.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
