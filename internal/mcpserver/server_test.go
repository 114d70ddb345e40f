package mcpserver

import (
	"context"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jwulff/prompter/internal/db"
)

func seededStore(t *testing.T) (*db.Store, string) {
	t.Helper()
	ctx := context.Background()

	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sess, err := store.StartSession(ctx, "en-US")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	questions := []db.Question{
		{
			ID: "q-1", SessionID: sess.ID, Text: "What is a mutex?",
			Category: "programming", Confidence: 0.65, CapturedAt: base,
		},
		{
			ID: "q-2", SessionID: sess.ID, Text: "How does DNS work?",
			Category: "networking", Confidence: 0.8, CapturedAt: base.Add(time.Minute),
		},
	}
	for _, q := range questions {
		if err := store.SaveQuestion(ctx, q); err != nil {
			t.Fatalf("save question %s: %v", q.ID, err)
		}
	}
	if _, err := store.SaveAnswer(ctx, db.Answer{
		QuestionID: "q-1", Text: "A mutex serializes access to shared state.",
		Model: "gpt-4o-mini", Elapsed: 1500 * time.Millisecond,
	}); err != nil {
		t.Fatalf("save answer: %v", err)
	}

	return store, sess.ID
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty result: %+v", res)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return text.Text
}

func decode(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
}

func wantToolError(t *testing.T, res *mcp.CallToolResult, err error, contains string) {
	t.Helper()
	if err != nil {
		t.Fatalf("handler err: %v", err)
	}
	if !res.IsError {
		t.Fatalf("IsError = false, result %s", resultText(t, res))
	}
	if contains != "" && !strings.Contains(resultText(t, res), contains) {
		t.Errorf("result %q missing %q", resultText(t, res), contains)
	}
}

func TestListQuestionsRecent(t *testing.T) {
	store, _ := seededStore(t)
	s := New(store, nil)

	res, err := s.handleListQuestions(context.Background(), callRequest(map[string]any{"limit": 10}))
	if err != nil {
		t.Fatalf("handler err: %v", err)
	}

	var out struct {
		Questions []questionView `json:"questions"`
	}
	decode(t, res, &out)
	if len(out.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(out.Questions))
	}
	got := out.Questions[0]
	if got.ID != "q-2" || got.Category != "networking" || got.CapturedAt != "2026-03-01T10:01:00Z" {
		t.Errorf("newest question = %+v", got)
	}
}

func TestListQuestionsForSession(t *testing.T) {
	store, sessionID := seededStore(t)
	s := New(store, nil)

	res, err := s.handleListQuestions(context.Background(), callRequest(map[string]any{
		"session_id": sessionID,
		"limit":      1,
	}))
	if err != nil {
		t.Fatalf("handler err: %v", err)
	}

	var out struct {
		Questions []questionView `json:"questions"`
	}
	decode(t, res, &out)
	if len(out.Questions) != 1 || out.Questions[0].ID != "q-1" {
		t.Errorf("questions = %+v, want only q-1", out.Questions)
	}
}

func TestListQuestionsBadLimit(t *testing.T) {
	store, _ := seededStore(t)
	s := New(store, nil)

	res, err := s.handleListQuestions(context.Background(), callRequest(map[string]any{"limit": 0}))
	wantToolError(t, res, err, "")
}

func TestGetAnswer(t *testing.T) {
	store, _ := seededStore(t)
	s := New(store, nil)

	res, err := s.handleGetAnswer(context.Background(), callRequest(map[string]any{"question_id": "q-1"}))
	if err != nil {
		t.Fatalf("handler err: %v", err)
	}

	var out struct {
		Question  questionView `json:"question"`
		Answered  bool         `json:"answered"`
		Answer    string       `json:"answer"`
		ElapsedMs int64        `json:"elapsed_ms"`
	}
	decode(t, res, &out)
	if !out.Answered {
		t.Error("answered = false, want true")
	}
	if out.Question.Text != "What is a mutex?" {
		t.Errorf("question text = %q", out.Question.Text)
	}
	if out.Answer != "A mutex serializes access to shared state." {
		t.Errorf("answer = %q", out.Answer)
	}
	if out.ElapsedMs != 1500 {
		t.Errorf("elapsed_ms = %d, want 1500", out.ElapsedMs)
	}
}

func TestGetAnswerUnanswered(t *testing.T) {
	store, _ := seededStore(t)
	s := New(store, nil)

	res, err := s.handleGetAnswer(context.Background(), callRequest(map[string]any{"question_id": "q-2"}))
	if err != nil {
		t.Fatalf("handler err: %v", err)
	}

	var out map[string]any
	decode(t, res, &out)
	if out["answered"] != false {
		t.Errorf("answered = %v, want false", out["answered"])
	}
	if _, ok := out["answer"]; ok {
		t.Errorf("unanswered result carries answer: %v", out["answer"])
	}
}

func TestGetAnswerErrors(t *testing.T) {
	store, _ := seededStore(t)
	s := New(store, nil)

	res, err := s.handleGetAnswer(context.Background(), callRequest(map[string]any{}))
	wantToolError(t, res, err, "")

	res, err = s.handleGetAnswer(context.Background(), callRequest(map[string]any{"question_id": "missing"}))
	wantToolError(t, res, err, "missing")
}

func TestClassifyText(t *testing.T) {
	s := New(nil, nil)

	res, err := s.handleClassifyText(context.Background(), callRequest(map[string]any{
		"text": "Okay. What is a function in javascript?",
	}))
	if err != nil {
		t.Fatalf("handler err: %v", err)
	}

	var out struct {
		Overall    classification   `json:"overall"`
		Candidates []classification `json:"candidates"`
	}
	decode(t, res, &out)

	if len(out.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(out.Candidates))
	}
	c := out.Candidates[0]
	if c.Text != "What is a function in javascript?" {
		t.Errorf("text = %q", c.Text)
	}
	if !c.IsTechnical || c.Category != "programming" {
		t.Errorf("verdict = technical %v category %q", c.IsTechnical, c.Category)
	}
	if math.Abs(c.Confidence-0.8) > 1e-9 {
		t.Errorf("confidence = %v, want 0.8", c.Confidence)
	}
	kw := slices.Clone(c.MatchedKeywords)
	slices.Sort(kw)
	if want := []string{"function", "javascript"}; !slices.Equal(kw, want) {
		t.Errorf("keywords = %v, want %v", kw, want)
	}
}

func TestNoStore(t *testing.T) {
	s := New(nil, nil)

	res, err := s.handleListQuestions(context.Background(), callRequest(nil))
	wantToolError(t, res, err, "not available")

	res, err = s.handleGetAnswer(context.Background(), callRequest(map[string]any{"question_id": "q-1"}))
	wantToolError(t, res, err, "")
}

func TestMCPServerListsTools(t *testing.T) {
	s := New(nil, nil)
	srv := s.MCPServer("test")

	resp := srv.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for _, name := range []string{"list_questions", "get_answer", "classify_text"} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Errorf("tools/list missing %q", name)
		}
	}
}
