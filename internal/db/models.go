// Package db stores prompter history (sessions, detected questions and their
// answers) in SQLite.
package db

import "time"

// Session is one run of the TUI.
type Session struct {
	ID        string
	Locale    string
	StartedAt time.Time
	EndedAt   *time.Time
	Status    string
	CreatedAt time.Time
}

// Question is a detected technical question.
type Question struct {
	ID         string
	SessionID  string
	Text       string
	Category   string
	Confidence float64
	CapturedAt time.Time
}

// Answer is a completed answer for a question. A question may be answered
// more than once; the newest answer wins.
type Answer struct {
	ID         string
	QuestionID string
	Text       string
	Model      string
	Elapsed    time.Duration
	CreatedAt  time.Time
}
