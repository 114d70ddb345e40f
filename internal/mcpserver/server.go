// Package mcpserver exposes prompter history and the classifier as MCP tools
// over stdio.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/prompter/internal/classify"
	"github.com/jwulff/prompter/internal/db"
	"github.com/jwulff/prompter/internal/question"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

var errNoStore = errors.New("history database is not available")

// Store is the read side of the history database.
type Store interface {
	RecentQuestions(ctx context.Context, limit int) ([]db.Question, error)
	QuestionsForSession(ctx context.Context, sessionID string) ([]db.Question, error)
	Question(ctx context.Context, id string) (*db.Question, error)
	AnswerForQuestion(ctx context.Context, questionID string) (*db.Answer, error)
}

// Server holds the tool handlers. store may be nil, in which case only
// classify_text works.
type Server struct {
	store      Store
	classifier *classify.Classifier
	extractor  *question.Extractor
	logger     *slog.Logger
}

// New creates a Server.
func New(store Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		store:      store,
		classifier: classify.New(),
		extractor:  question.New(),
		logger:     logger,
	}
}

// MCPServer builds the MCP server with all tools registered.
func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer("prompter", version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	srv.AddTool(mcp.NewTool("list_questions",
		mcp.WithDescription("List technical questions detected in recent conversations, newest first."),
		mcp.WithString("session_id",
			mcp.Description("Only questions from this session, in capture order."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of questions to return."),
			mcp.DefaultNumber(defaultListLimit),
		),
	), s.handleListQuestions)

	srv.AddTool(mcp.NewTool("get_answer",
		mcp.WithDescription("Get the stored answer for a detected question."),
		mcp.WithString("question_id",
			mcp.Required(),
			mcp.Description("ID returned by list_questions."),
		),
	), s.handleGetAnswer)

	srv.AddTool(mcp.NewTool("classify_text",
		mcp.WithDescription("Extract candidate questions from text and classify each by technical domain."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Transcript text to analyse."),
		),
	), s.handleClassifyText)

	return srv
}

// ServeStdio serves MCP on stdin/stdout until the input closes.
func (s *Server) ServeStdio(version string) error {
	return server.ServeStdio(s.MCPServer(version))
}

type questionView struct {
	ID         string  `json:"id"`
	SessionID  string  `json:"session_id"`
	Text       string  `json:"text"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
	CapturedAt string  `json:"captured_at"`
}

func toQuestionView(q db.Question) questionView {
	return questionView{
		ID:         q.ID,
		SessionID:  q.SessionID,
		Text:       q.Text,
		Category:   q.Category,
		Confidence: q.Confidence,
		CapturedAt: q.CapturedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListQuestions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError(errNoStore.Error()), nil
	}

	limit := req.GetInt("limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		return mcp.NewToolResultError(fmt.Sprintf("limit must be between 1 and %d", maxListLimit)), nil
	}

	var (
		questions []db.Question
		err       error
	)
	if sessionID := req.GetString("session_id", ""); sessionID != "" {
		questions, err = s.store.QuestionsForSession(ctx, sessionID)
		if len(questions) > limit {
			questions = questions[:limit]
		}
	} else {
		questions, err = s.store.RecentQuestions(ctx, limit)
	}
	if err != nil {
		s.logger.Warn("mcp_list_questions_failed", "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, toQuestionView(q))
	}
	return jsonResult(map[string]any{"questions": views})
}

func (s *Server) handleGetAnswer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError(errNoStore.Error()), nil
	}

	id, err := req.RequireString("question_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	q, err := s.store.Question(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if q == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no question with id %q", id)), nil
	}

	a, err := s.store.AnswerForQuestion(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := map[string]any{
		"question": toQuestionView(*q),
		"answered": a != nil,
	}
	if a != nil {
		out["answer"] = a.Text
		out["model"] = a.Model
		out["elapsed_ms"] = a.Elapsed.Milliseconds()
	}
	return jsonResult(out)
}

type classification struct {
	Text            string   `json:"text"`
	IsTechnical     bool     `json:"is_technical"`
	Confidence      float64  `json:"confidence"`
	Category        string   `json:"category,omitempty"`
	MatchedKeywords []string `json:"matched_keywords"`
}

func (s *Server) handleClassifyText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var candidates []classification
	for _, c := range s.extractor.Extract(text) {
		candidates = append(candidates, s.classify(c))
	}

	return jsonResult(map[string]any{
		"overall":    s.classify(text),
		"candidates": candidates,
	})
}

func (s *Server) classify(text string) classification {
	res := s.classifier.Classify(text)
	kw := res.MatchedKeywords
	if kw == nil {
		kw = []string{}
	}
	return classification{
		Text:            text,
		IsTechnical:     res.IsTechnical,
		Confidence:      res.Confidence,
		Category:        string(res.Category),
		MatchedKeywords: kw,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
