package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// openTestStore opens an in-memory store whose clock advances one second
// per call.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return store
}

func TestStartAndLatestSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	latest, err := store.LatestSession(ctx)
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if latest != nil {
		t.Fatalf("latest = %+v, want nil on empty db", latest)
	}

	first, err := store.StartSession(ctx, "en-US")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	second, err := store.StartSession(ctx, "de-DE")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if first.ID == second.ID {
		t.Error("session IDs should differ")
	}

	latest, err = store.LatestSession(ctx)
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest id = %q, want %q", latest.ID, second.ID)
	}
	if latest.Locale != "de-DE" {
		t.Errorf("locale = %q, want %q", latest.Locale, "de-DE")
	}
	if latest.Status != "active" {
		t.Errorf("status = %q, want active", latest.Status)
	}
	if latest.EndedAt != nil {
		t.Error("endedAt should be nil for active session")
	}
}

func TestEndSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, _ := store.StartSession(ctx, "en-US")
	if err := store.EndSession(ctx, sess.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	latest, _ := store.LatestSession(ctx)
	if latest.Status != "ended" {
		t.Errorf("status = %q, want ended", latest.Status)
	}
	if latest.EndedAt == nil || !latest.EndedAt.After(latest.StartedAt) {
		t.Errorf("endedAt = %v, want after %v", latest.EndedAt, latest.StartedAt)
	}
}

func TestQuestionsForSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, _ := store.StartSession(ctx, "en-US")
	other, _ := store.StartSession(ctx, "en-US")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	questions := []Question{
		{ID: "q-2", SessionID: sess.ID, Text: "How does DNS work?", Category: "networking", Confidence: 0.8, CapturedAt: base.Add(2 * time.Second)},
		{ID: "q-1", SessionID: sess.ID, Text: "What is a mutex?", Category: "programming", Confidence: 0.65, CapturedAt: base.Add(time.Second)},
		{ID: "q-3", SessionID: other.ID, Text: "What is kubernetes?", Category: "devops", Confidence: 0.65, CapturedAt: base.Add(3 * time.Second)},
	}
	for _, q := range questions {
		if err := store.SaveQuestion(ctx, q); err != nil {
			t.Fatalf("SaveQuestion(%s): %v", q.ID, err)
		}
	}

	got, err := store.QuestionsForSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("QuestionsForSession: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d questions, want 2", len(got))
	}
	if got[0].ID != "q-1" || got[1].ID != "q-2" {
		t.Errorf("order = [%s %s], want [q-1 q-2]", got[0].ID, got[1].ID)
	}
	if got[0].Category != "programming" {
		t.Errorf("category = %q, want programming", got[0].Category)
	}
	if !got[0].CapturedAt.Equal(base.Add(time.Second)) {
		t.Errorf("capturedAt = %v, want %v", got[0].CapturedAt, base.Add(time.Second))
	}
}

func TestSaveQuestionIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, _ := store.StartSession(ctx, "en-US")
	q := Question{ID: "q-1", SessionID: sess.ID, Text: "What is a mutex?", Confidence: 0.65, CapturedAt: time.Now()}

	if err := store.SaveQuestion(ctx, q); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.SaveQuestion(ctx, q); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, _ := store.QuestionsForSession(ctx, sess.ID)
	if len(got) != 1 {
		t.Errorf("got %d questions, want 1", len(got))
	}
}

func TestSaveQuestionUnknownSession(t *testing.T) {
	store := openTestStore(t)

	err := store.SaveQuestion(context.Background(), Question{ID: "q-1", SessionID: "missing", Text: "x", CapturedAt: time.Now()})
	if err == nil {
		t.Error("expected foreign key error for unknown session")
	}
}

func TestRecentQuestionsAndLookup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, _ := store.StartSession(ctx, "en-US")
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"q-1", "q-2", "q-3"} {
		store.SaveQuestion(ctx, Question{ID: id, SessionID: sess.ID, Text: "question " + id, CapturedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	recent, err := store.RecentQuestions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentQuestions: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "q-3" || recent[1].ID != "q-2" {
		t.Errorf("recent = %+v, want [q-3 q-2]", recent)
	}

	q, err := store.Question(ctx, "q-2")
	if err != nil {
		t.Fatalf("Question: %v", err)
	}
	if q == nil || q.Text != "question q-2" {
		t.Errorf("question = %+v", q)
	}

	missing, err := store.Question(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("missing question = %+v, %v; want nil, nil", missing, err)
	}
}

func TestAnswerForQuestion(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, _ := store.StartSession(ctx, "en-US")
	store.SaveQuestion(ctx, Question{ID: "q-1", SessionID: sess.ID, Text: "What is a mutex?", CapturedAt: time.Now()})

	none, err := store.AnswerForQuestion(ctx, "q-1")
	if err != nil || none != nil {
		t.Fatalf("answer before save = %+v, %v; want nil, nil", none, err)
	}

	if _, err := store.SaveAnswer(ctx, Answer{QuestionID: "q-1", Text: "first", Model: "gpt-4o-mini", Elapsed: 1200 * time.Millisecond}); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}
	saved, err := store.SaveAnswer(ctx, Answer{QuestionID: "q-1", Text: "second", Model: "gpt-4o-mini", Elapsed: 800 * time.Millisecond})
	if err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}
	if saved.ID == "" {
		t.Error("saved answer should get an ID")
	}

	got, err := store.AnswerForQuestion(ctx, "q-1")
	if err != nil {
		t.Fatalf("AnswerForQuestion: %v", err)
	}
	if got.Text != "second" {
		t.Errorf("text = %q, want newest answer %q", got.Text, "second")
	}
	if got.Elapsed != 800*time.Millisecond {
		t.Errorf("elapsed = %v, want 800ms", got.Elapsed)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", got.Model)
	}
}

func TestOpenFileAndReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prompter.sqlite")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sess, err := store.StartSession(ctx, "en-US")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	store.Close()

	// Reopening applies the schema again without error.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	store.Close()

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer ro.Close()

	latest, err := ro.LatestSession(ctx)
	if err != nil {
		t.Fatalf("LatestSession: %v", err)
	}
	if latest == nil || latest.ID != sess.ID {
		t.Errorf("latest = %+v, want %s", latest, sess.ID)
	}

	if _, err := ro.StartSession(ctx, "en-US"); err == nil {
		t.Error("expected write to fail on read-only store")
	}
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 500_000_000, time.UTC)
	got := timeFromUnix(timeToUnix(ts))
	if d := got.Sub(ts); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("round trip drift = %v", d)
	}
}
