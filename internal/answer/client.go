// Package answer retrieves a generated answer for a detected question from a
// chat-completions endpoint, streaming partial text as it arrives.
package answer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.3

	// NoAnswer is reported when a non-streaming response carries no text.
	NoAnswer = "No answer received."

	// DefaultSystemPrompt frames the answer for a peer engineer.
	DefaultSystemPrompt = "You are a senior engineer answering a technical question from a peer " +
		"during a live conversation. Be concise. Start with what it is and why it matters in " +
		"1-2 sentences, then give one short, concrete example."

	maxErrorBody = 64 * 1024
	maxLineSize  = 1024 * 1024
)

// ErrMissingAPIKey is returned before any network call when no key is set.
var ErrMissingAPIKey = errors.New("api key is required")

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("answer endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// Config controls the request sent to the endpoint.
type Config struct {
	APIKey       string
	Endpoint     string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Stream       bool
}

// DefaultConfig returns the defaults: 300 tokens, temperature 0.3, streaming.
func DefaultConfig() Config {
	return Config{
		Endpoint:     DefaultEndpoint,
		Model:        DefaultModel,
		SystemPrompt: DefaultSystemPrompt,
		MaxTokens:    DefaultMaxTokens,
		Temperature:  DefaultTemperature,
		Stream:       true,
	}
}

// Result is the terminal outcome of a completed request.
type Result struct {
	Answer  string
	Elapsed time.Duration
}

// Client issues answer requests. Each GetAnswer call runs its own state
// machine; nothing is shared between calls except configuration.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client. Empty endpoint, model, prompt and token limit
// fall back to the defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the client's effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// GetAnswer asks the endpoint about question. notify receives every state
// transition and, while streaming, the full text accumulated so far after
// each delta. The returned error is non-nil exactly when the request ends in
// Failed. Cancelling ctx aborts the exchange.
func (c *Client) GetAnswer(ctx context.Context, question string, notify func(Update)) (Result, error) {
	if notify == nil {
		notify = func(Update) {}
	}

	if strings.TrimSpace(c.cfg.APIKey) == "" {
		notify(Update{State: Failed, Err: ErrMissingAPIKey})
		return Result{}, ErrMissingAPIKey
	}

	start := c.now()
	fail := func(err error) (Result, error) {
		elapsed := c.now().Sub(start)
		c.logger.Warn("answer_request_failed", "err", err, "elapsed", elapsed)
		notify(Update{State: Failed, Err: err, Elapsed: elapsed})
		return Result{Elapsed: elapsed}, err
	}

	notify(Update{State: Requesting})

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: question},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stream:      c.cfg.Stream,
	})
	if err != nil {
		return fail(fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fail(fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(&StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		})
	}

	if !c.cfg.Stream {
		var chatResp chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
			return fail(fmt.Errorf("decode response: %w", err))
		}
		text := ""
		if len(chatResp.Choices) > 0 {
			text = chatResp.Choices[0].Message.Content
		}
		if text == "" {
			text = NoAnswer
		}
		return c.complete(start, text, notify), nil
	}

	notify(Update{State: Streaming})

	text, err := c.consumeStream(resp.Body, notify)
	if err != nil {
		return fail(err)
	}
	return c.complete(start, text, notify), nil
}

func (c *Client) complete(start time.Time, text string, notify func(Update)) Result {
	elapsed := c.now().Sub(start)
	c.logger.Info("answer_completed", "chars", len(text), "elapsed", elapsed)
	notify(Update{State: Completed, Text: text, Elapsed: elapsed})
	return Result{Answer: text, Elapsed: elapsed}
}

// consumeStream reads "data: " lines until "[DONE]" or EOF, pushing the
// accumulated text after every non-empty delta. Undecodable chunks are
// skipped.
func (c *Client) consumeStream(r io.Reader, notify func(Update)) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var answer strings.Builder
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return answer.String(), nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Debug("answer_chunk_skipped", "err", err)
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		answer.WriteString(chunk.Choices[0].Delta.Content)
		notify(Update{State: Streaming, Text: answer.String()})
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	return answer.String(), nil
}
