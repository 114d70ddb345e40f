package app

import (
	"github.com/jwulff/prompter/internal/answer"
	"github.com/jwulff/prompter/internal/capture"
	"github.com/jwulff/prompter/internal/db"
)

// SourceConnectedMsg is sent when the recognizer connection is established.
type SourceConnectedMsg struct {
	Source capture.Source
}

// SourceConnectErrorMsg is sent when the recognizer cannot be reached.
type SourceConnectErrorMsg struct {
	Err error
}

// CaptureMsg wraps one message read from the recognizer.
type CaptureMsg struct {
	Message capture.Message
}

// CaptureErrorMsg is sent when reading from the recognizer fails. The
// connection is unusable afterwards.
type CaptureErrorMsg struct {
	Err error
}

// ListenResultMsg reports the outcome of a start or stop command.
type ListenResultMsg struct {
	Listen bool
	Err    error
}

// RestartTickMsg triggers a recognition restart after end-of-session.
type RestartTickMsg struct{}

// ReconnectTickMsg triggers a reconnection attempt.
type ReconnectTickMsg struct{}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}

// AnswerUpdateMsg carries one notification from an answer request.
// Generation identifies the request; updates is read for the next one.
type AnswerUpdateMsg struct {
	Generation uint64
	Update     answer.Update
	updates    <-chan answer.Update
}

// AnswerDoneMsg is sent when an answer request has delivered everything.
type AnswerDoneMsg struct {
	Generation uint64
}

// storeOpenedMsg carries the history store and the session row for this run.
type storeOpenedMsg struct {
	store   *db.Store
	session db.Session
}
