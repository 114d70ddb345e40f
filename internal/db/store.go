package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	statusActive = "active"
	statusEnded  = "ended"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		locale TEXT NOT NULL,
		startedAt REAL NOT NULL,
		endedAt REAL,
		status TEXT NOT NULL DEFAULT 'active',
		createdAt REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		sessionId TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		confidence REAL NOT NULL,
		capturedAt REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_questions_session
		ON questions(sessionId, capturedAt);

	CREATE TABLE IF NOT EXISTS answers (
		id TEXT PRIMARY KEY,
		questionId TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		elapsedMs INTEGER NOT NULL DEFAULT 0,
		createdAt REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_answers_question
		ON answers(questionId, createdAt);
`

// Store provides access to the prompter SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "prompter", "prompter.sqlite")
}

// Open opens (creating if needed) the database for reading and writing and
// applies the schema. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	}

	s, err := open(dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		if _, err := s.db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			s.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	if _, err := s.db.Exec(schema); err != nil {
		s.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

// OpenReadOnly opens an existing database without write access, for readers
// running alongside the TUI.
func OpenReadOnly(path string) (*Store, error) {
	return open(fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path))
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps an in-memory database shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartSession records a new active session.
func (s *Store) StartSession(ctx context.Context, locale string) (Session, error) {
	now := s.now()
	sess := Session{
		ID:        newID(),
		Locale:    locale,
		StartedAt: now,
		Status:    statusActive,
		CreatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, locale, startedAt, status, createdAt)
		VALUES (?, ?, ?, ?, ?)
	`, sess.ID, sess.Locale, timeToUnix(now), sess.Status, timeToUnix(now))
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// EndSession marks a session ended.
func (s *Store) EndSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, endedAt = ? WHERE id = ?
	`, statusEnded, timeToUnix(s.now()), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// LatestSession returns the most recent session regardless of status.
func (s *Store) LatestSession(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, locale, startedAt, endedAt, status, createdAt
		FROM sessions
		ORDER BY startedAt DESC
		LIMIT 1
	`)

	var sess Session
	var startedAt, createdAt float64
	var endedAt sql.NullFloat64

	if err := row.Scan(&sess.ID, &sess.Locale, &startedAt, &endedAt,
		&sess.Status, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	sess.StartedAt = timeFromUnix(startedAt)
	sess.CreatedAt = timeFromUnix(createdAt)
	if endedAt.Valid {
		t := timeFromUnix(endedAt.Float64)
		sess.EndedAt = &t
	}
	return &sess, nil
}

// SaveQuestion stores a detected question. Saving the same ID twice is a
// no-op.
func (s *Store) SaveQuestion(ctx context.Context, q Question) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO questions (id, sessionId, text, category, confidence, capturedAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, q.ID, q.SessionID, q.Text, q.Category, q.Confidence, timeToUnix(q.CapturedAt))
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// QuestionsForSession returns a session's questions in capture order.
func (s *Store) QuestionsForSession(ctx context.Context, sessionID string) ([]Question, error) {
	return s.queryQuestions(ctx, `
		SELECT id, sessionId, text, category, confidence, capturedAt
		FROM questions
		WHERE sessionId = ?
		ORDER BY capturedAt ASC
	`, sessionID)
}

// RecentQuestions returns up to limit questions across sessions, newest
// first.
func (s *Store) RecentQuestions(ctx context.Context, limit int) ([]Question, error) {
	return s.queryQuestions(ctx, `
		SELECT id, sessionId, text, category, confidence, capturedAt
		FROM questions
		ORDER BY capturedAt DESC
		LIMIT ?
	`, limit)
}

// Question returns one question by ID, or nil if it does not exist.
func (s *Store) Question(ctx context.Context, id string) (*Question, error) {
	qs, err := s.queryQuestions(ctx, `
		SELECT id, sessionId, text, category, confidence, capturedAt
		FROM questions
		WHERE id = ?
	`, id)
	if err != nil || len(qs) == 0 {
		return nil, err
	}
	return &qs[0], nil
}

func (s *Store) queryQuestions(ctx context.Context, query string, args ...any) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		var capturedAt float64
		if err := rows.Scan(&q.ID, &q.SessionID, &q.Text, &q.Category,
			&q.Confidence, &capturedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.CapturedAt = timeFromUnix(capturedAt)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SaveAnswer stores a completed answer. An empty ID is filled in.
func (s *Store) SaveAnswer(ctx context.Context, a Answer) (Answer, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (id, questionId, text, model, elapsedMs, createdAt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.QuestionID, a.Text, a.Model, a.Elapsed.Milliseconds(), timeToUnix(a.CreatedAt))
	if err != nil {
		return Answer{}, fmt.Errorf("insert answer: %w", err)
	}
	return a, nil
}

// AnswerForQuestion returns the newest answer for a question, or nil.
func (s *Store) AnswerForQuestion(ctx context.Context, questionID string) (*Answer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, questionId, text, model, elapsedMs, createdAt
		FROM answers
		WHERE questionId = ?
		ORDER BY createdAt DESC
		LIMIT 1
	`, questionID)

	var a Answer
	var elapsedMs int64
	var createdAt float64
	if err := row.Scan(&a.ID, &a.QuestionID, &a.Text, &a.Model, &elapsedMs, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan answer: %w", err)
	}
	a.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	a.CreatedAt = timeFromUnix(createdAt)
	return &a, nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func timeToUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
