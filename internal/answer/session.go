package answer

import "time"

// State is a position in the per-request state machine.
type State int

const (
	Idle State = iota
	Requesting
	Streaming
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further updates follow s.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// Update is one notification from a running request. While Streaming, Text
// is the whole answer so far, not the latest delta.
type Update struct {
	State   State
	Text    string
	Elapsed time.Duration
	Err     error
}

// Session is the answer currently shown for a question. Generation ties the
// session to the request that feeds it; updates from older requests must be
// dropped by the caller.
type Session struct {
	Generation uint64
	QuestionID string
	Question   string
	State      State
	Partial    string
	Streaming  bool
	Elapsed    time.Duration
	Err        string
	Cached     bool
}

// NewSession starts an idle session for a question.
func NewSession(generation uint64, questionID, question string) Session {
	return Session{
		Generation: generation,
		QuestionID: questionID,
		Question:   question,
		State:      Idle,
	}
}

// CachedSession is a completed session built from a previously received
// answer.
func CachedSession(generation uint64, questionID, question, text string) Session {
	return Session{
		Generation: generation,
		QuestionID: questionID,
		Question:   question,
		State:      Completed,
		Partial:    text,
		Cached:     true,
	}
}

// Apply folds u into the session. Updates after a terminal state are ignored.
func (s Session) Apply(u Update) Session {
	if s.State.Terminal() {
		return s
	}

	s.State = u.State
	switch u.State {
	case Requesting:
		s.Streaming = false
	case Streaming:
		s.Streaming = true
		if u.Text != "" {
			s.Partial = u.Text
		}
	case Completed:
		s.Streaming = false
		s.Partial = u.Text
		s.Elapsed = u.Elapsed
	case Failed:
		s.Streaming = false
		s.Elapsed = u.Elapsed
		if u.Err != nil {
			s.Err = u.Err.Error()
		}
	}
	return s
}

// Done reports whether the session reached a terminal state.
func (s Session) Done() bool {
	return s.State.Terminal()
}
