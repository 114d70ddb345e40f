package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jwulff/prompter/internal/answer"
	"github.com/jwulff/prompter/internal/capture"
	"github.com/jwulff/prompter/internal/classify"
	"github.com/jwulff/prompter/internal/config"
	"github.com/jwulff/prompter/internal/db"
	"github.com/jwulff/prompter/internal/question"
	"github.com/jwulff/prompter/internal/registry"
	"github.com/jwulff/prompter/internal/segment"
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusQuestions PanelFocus = iota
	FocusTranscript
	FocusAnswer
)

// TranscriptEntry is a finalized transcript line for display.
type TranscriptEntry struct {
	Text      string
	Timestamp time.Time
}

// Answerer fetches an answer for a question, reporting progress via notify.
type Answerer interface {
	GetAnswer(ctx context.Context, question string, notify func(answer.Update)) (answer.Result, error)
}

// DialFunc opens a connection to the recognizer.
type DialFunc func() (capture.Source, error)

// Options configures a Model. Answerer and Dial default to implementations
// built from Config.
type Options struct {
	Config   *config.Config
	Logger   *slog.Logger
	Answerer Answerer
	Dial     DialFunc
}

// Model is the root bubbletea model for the prompter TUI.
type Model struct {
	cfg    *config.Config
	logger *slog.Logger

	// Connection state
	dial         DialFunc
	source       capture.Source
	connected    bool
	connError    string
	reconnecting bool
	reconnect    *capture.RestartPolicy

	// Listening is what the user asked for; recording is what the
	// recognizer last reported.
	listening bool
	recording bool
	restart   *capture.RestartPolicy
	level     float32

	// Transcript
	entries     []TranscriptEntry
	partialText string

	// Question pipeline
	registry  *registry.Registry
	segmenter *segment.Segmenter

	// Answer
	answerer   Answerer
	session    answer.Session
	generation uint64
	cancel     context.CancelFunc
	answers    *expirable.LRU[string, string]

	// UI state
	focusedPanel     PanelFocus
	width            int
	height           int
	transcriptScroll int
	transcriptLive   bool
	answerScroll     int

	// Errors
	errorMessage   string
	errorTransient bool

	statusText string

	// History
	store     *db.Store
	sessionID string
}

// New creates a Model with default state.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	answerer := opts.Answerer
	if answerer == nil {
		answerer = answer.NewClient(cfg.AnswerConfig(), answer.WithLogger(logger))
	}
	dial := opts.Dial
	if dial == nil {
		dial = DialFromConfig(cfg)
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}

	reg := registry.New()
	return Model{
		cfg:            cfg,
		logger:         logger,
		dial:           dial,
		reconnect:      capture.NewRestartPolicy(0, time.Second, 30*time.Second),
		restart:        capture.NewRestartPolicy(cfg.MaxRestarts, 250*time.Millisecond, 5*time.Second),
		registry:       reg,
		segmenter:      segment.New(question.New(), classify.New(), reg, logger),
		answerer:       answerer,
		answers:        expirable.NewLRU[string, string](cacheSize, nil, cacheTTL),
		focusedPanel:   FocusQuestions,
		transcriptLive: true,
		statusText:     "Connecting to recognizer...",
	}
}

// DialFromConfig connects to a websocket recognizer when a capture URL is
// configured and to the recognizer daemon socket otherwise.
func DialFromConfig(cfg *config.Config) DialFunc {
	return func() (capture.Source, error) {
		if cfg.CaptureURL != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return capture.DialWebSocket(ctx, cfg.CaptureURL, cfg.Locale, nil)
		}
		path := cfg.SocketPath
		if path == "" {
			path = capture.SocketPath()
		}
		return capture.OpenDaemon(path, cfg.Locale)
	}
}

// Init connects to the recognizer and opens the history store.
func (m Model) Init() tea.Cmd {
	path := m.cfg.DBPath
	if path == "" {
		path = db.DefaultDBPath()
	}
	return tea.Batch(
		connectCmd(m.dial),
		openStoreCmd(path, m.cfg.Locale, m.logger),
	)
}

// Close ends the history session and closes the store. It is called after
// the program exits.
func (m Model) Close() error {
	if m.cancel != nil {
		m.cancel()
	}
	if m.source != nil {
		m.source.Close()
	}
	if m.store == nil {
		return nil
	}
	var err error
	if m.sessionID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = m.store.EndSession(ctx, m.sessionID)
		cancel()
	}
	return errors.Join(err, m.store.Close())
}

// connectCmd dials the recognizer.
func connectCmd(dial DialFunc) tea.Cmd {
	return func() tea.Msg {
		src, err := dial()
		if err != nil {
			return SourceConnectErrorMsg{Err: err}
		}
		return SourceConnectedMsg{Source: src}
	}
}

// readCaptureCmd reads the next message from the recognizer.
func readCaptureCmd(src capture.Source) tea.Cmd {
	return func() tea.Msg {
		msg, err := src.Next()
		if err != nil {
			return CaptureErrorMsg{Err: err}
		}
		return CaptureMsg{Message: msg}
	}
}

// listenCmd starts or stops recognition.
func listenCmd(src capture.Source, listen bool) tea.Cmd {
	return func() tea.Msg {
		var err error
		if listen {
			err = src.Listen()
		} else {
			err = src.Halt()
		}
		return ListenResultMsg{Listen: listen, Err: err}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

func reconnectCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ReconnectTickMsg{}
	})
}

func restartCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return RestartTickMsg{}
	})
}

// requestAnswerCmd runs one answer request in its own goroutine and returns
// its first notification. Notifications are handed over one at a time. Once
// ctx is cancelled the request is abandoned and undelivered notifications
// are dropped; a timeout still delivers the failure.
func requestAnswerCmd(ctx context.Context, a Answerer, gen uint64, q string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		updates := make(chan answer.Update)
		go func() {
			defer close(updates)
			reqCtx, cancel := ctx, context.CancelFunc(func() {})
			if timeout > 0 {
				reqCtx, cancel = context.WithTimeout(ctx, timeout)
			}
			defer cancel()
			_, _ = a.GetAnswer(reqCtx, q, func(u answer.Update) {
				select {
				case updates <- u:
				case <-ctx.Done():
				}
			})
		}()
		return readAnswer(gen, updates)
	}
}

func waitAnswerCmd(gen uint64, updates <-chan answer.Update) tea.Cmd {
	return func() tea.Msg {
		return readAnswer(gen, updates)
	}
}

func readAnswer(gen uint64, updates <-chan answer.Update) tea.Msg {
	u, ok := <-updates
	if !ok {
		return AnswerDoneMsg{Generation: gen}
	}
	return AnswerUpdateMsg{Generation: gen, Update: u, updates: updates}
}

// openStoreCmd opens the SQLite store and starts a history session.
func openStoreCmd(path, locale string, logger *slog.Logger) tea.Cmd {
	return func() tea.Msg {
		store, err := db.Open(path)
		if err != nil {
			logger.Warn("store_open_failed", "path", path, "err", err)
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sess, err := store.StartSession(ctx, locale)
		if err != nil {
			logger.Warn("store_session_failed", "err", err)
			store.Close()
			return nil
		}
		return storeOpenedMsg{store: store, session: sess}
	}
}

func saveQuestionCmd(store *db.Store, q db.Question, logger *slog.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.SaveQuestion(ctx, q); err != nil {
			logger.Warn("store_question_failed", "id", q.ID, "err", err)
		}
		return nil
	}
}

// saveAnswerCmd stores q before a. The question's own save runs as a separate
// command and may not have landed yet; SaveQuestion ignores the duplicate.
func saveAnswerCmd(store *db.Store, q db.Question, a db.Answer, logger *slog.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.SaveQuestion(ctx, q); err != nil {
			logger.Warn("store_question_failed", "id", q.ID, "err", err)
			return nil
		}
		if _, err := store.SaveAnswer(ctx, a); err != nil {
			logger.Warn("store_answer_failed", "question_id", a.QuestionID, "err", err)
		}
		return nil
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SourceConnectedMsg:
		m.source = msg.Source
		m.connected = true
		m.connError = ""
		m.reconnecting = false
		m.reconnect.Reset()
		m.statusText = "Connected"
		m.logger.Info("capture_connected")
		return m, readCaptureCmd(m.source)

	case SourceConnectErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.reconnecting = true
		m.statusText = "Recognizer not running. Reconnecting..."
		delay, _ := m.reconnect.Next()
		m.logger.Debug("capture_connect_failed", "err", msg.Err, "retry_in", delay)
		return m, reconnectCmd(delay)

	case CaptureErrorMsg:
		m.logger.Warn("capture_disconnected", "err", msg.Err)
		if m.source != nil {
			m.source.Close()
			m.source = nil
		}
		m.connected = false
		m.connError = msg.Err.Error()
		m.reconnecting = true
		m.listening = false
		m.recording = false
		m.partialText = ""
		m.statusText = "Disconnected. Reconnecting..."
		delay, _ := m.reconnect.Next()
		return m, reconnectCmd(delay)

	case ReconnectTickMsg:
		return m, connectCmd(m.dial)

	case CaptureMsg:
		cmd := m.handleCapture(msg.Message)
		if m.source == nil {
			return m, cmd
		}
		return m, tea.Batch(cmd, readCaptureCmd(m.source))

	case ListenResultMsg:
		if msg.Err != nil {
			m.logger.Warn("capture_command_failed", "listen", msg.Listen, "err", msg.Err)
			m.listening = false
			m.errorMessage = msg.Err.Error()
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		if msg.Listen {
			m.statusText = "Listening"
		} else {
			m.statusText = "Idle"
			m.partialText = ""
		}
		return m, nil

	case RestartTickMsg:
		if !m.listening || !m.connected || m.source == nil {
			return m, nil
		}
		m.logger.Info("capture_restart", "attempt", m.restart.Attempts())
		return m, listenCmd(m.source, true)

	case AnswerUpdateMsg:
		if msg.Generation != m.generation {
			return m, nil
		}
		m.session = m.session.Apply(msg.Update)
		cmds := []tea.Cmd{waitAnswerCmd(msg.Generation, msg.updates)}
		// An empty response is shown but not kept, so Enter asks again.
		if msg.Update.State == answer.Completed && msg.Update.Text != answer.NoAnswer {
			m.answers.Add(m.session.QuestionID, msg.Update.Text)
			if q, ok := m.questionByID(m.session.QuestionID); ok && m.store != nil && m.sessionID != "" {
				model := m.cfg.Model
				if model == "" {
					model = answer.DefaultModel
				}
				cmds = append(cmds, saveAnswerCmd(m.store, m.storedQuestion(q), db.Answer{
					QuestionID: q.ID,
					Text:       msg.Update.Text,
					Model:      model,
					Elapsed:    msg.Update.Elapsed,
				}, m.logger))
			}
		}
		return m, tea.Batch(cmds...)

	case AnswerDoneMsg:
		if msg.Generation == m.generation && m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		return m, nil

	case storeOpenedMsg:
		m.store = msg.store
		m.sessionID = msg.session.ID
		var cmds []tea.Cmd
		// Questions detected before the store was ready.
		for _, q := range m.registry.Questions() {
			cmds = append(cmds, saveQuestionCmd(m.store, m.storedQuestion(q), m.logger))
		}
		return m, tea.Batch(cmds...)

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// handleCapture applies one recognizer message and returns any resulting
// command.
func (m *Model) handleCapture(msg capture.Message) tea.Cmd {
	switch msg.Kind {
	case capture.KindFragment:
		if !msg.Fragment.IsFinal {
			m.partialText = msg.Fragment.Text
			return nil
		}
		return m.handleFinal(msg.Fragment.Text)

	case capture.KindLevel:
		m.level = msg.Level

	case capture.KindStatus:
		m.recording = msg.Recording
		if !m.recording {
			m.partialText = ""
		}

	case capture.KindError:
		// Any capture error ends listening, so a following end-of-session
		// does not restart.
		m.listening = false
		m.recording = false
		m.partialText = ""
		m.statusText = "Idle"
		m.errorMessage = capture.Describe(msg.Code)
		m.logger.Warn("capture_error", "code", msg.Code, "detail", msg.Detail)
		if !capture.Terminal(msg.Code) {
			m.errorTransient = true
			return clearTransientErrorCmd()
		}
		m.errorTransient = false

	case capture.KindEnd:
		m.recording = false
		m.partialText = ""
		if !m.listening {
			return nil
		}
		delay, ok := m.restart.Next()
		if !ok {
			m.listening = false
			m.statusText = "Idle"
			m.errorMessage = fmt.Sprintf("Recognition stopped after %d restarts", m.restart.Attempts())
			m.logger.Warn("capture_restart_exhausted", "attempts", m.restart.Attempts())
			return nil
		}
		m.statusText = "Restarting..."
		return restartCmd(delay)
	}
	return nil
}

func (m *Model) handleFinal(text string) tea.Cmd {
	m.entries = append(m.entries, TranscriptEntry{Text: text, Timestamp: time.Now()})
	m.partialText = ""
	if m.transcriptLive {
		m.scrollToBottom()
	}
	m.restart.Reset()

	added := m.segmenter.OnFinalFragment(text)
	if len(added) == 0 {
		return nil
	}

	var cmds []tea.Cmd
	if m.store != nil && m.sessionID != "" {
		for _, q := range added {
			cmds = append(cmds, saveQuestionCmd(m.store, m.storedQuestion(q), m.logger))
		}
	}
	// The newest question is now selected.
	m.selectionChanged()
	return tea.Batch(cmds...)
}

func (m Model) storedQuestion(q registry.DetectedQuestion) db.Question {
	return db.Question{
		ID:         q.ID,
		SessionID:  m.sessionID,
		Text:       q.Text,
		Category:   string(q.Category),
		Confidence: q.Confidence,
		CapturedAt: q.CapturedAt,
	}
}

func (m Model) questionByID(id string) (registry.DetectedQuestion, bool) {
	for _, q := range m.registry.Questions() {
		if q.ID == id {
			return q, true
		}
	}
	return registry.DetectedQuestion{}, false
}

// supersede abandons the in-flight request, if any. Notifications still
// queued for it carry an old generation and are ignored.
func (m *Model) supersede() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.generation++
}

// selectionChanged replaces the answer session with the new selection's
// cached answer, or an idle session.
func (m *Model) selectionChanged() {
	m.supersede()
	m.answerScroll = 0
	q, ok := m.registry.Selected()
	if !ok {
		m.session = answer.Session{Generation: m.generation}
		return
	}
	if text, ok := m.answers.Get(q.ID); ok {
		m.session = answer.CachedSession(m.generation, q.ID, q.Text, text)
		return
	}
	m.session = answer.NewSession(m.generation, q.ID, q.Text)
}

// requestAnswer starts a request for the selected question. Unless force is
// set, a cached answer is shown instead.
func (m *Model) requestAnswer(force bool) tea.Cmd {
	q, ok := m.registry.Selected()
	if !ok {
		return nil
	}
	if !force {
		if text, ok := m.answers.Get(q.ID); ok {
			m.supersede()
			m.session = answer.CachedSession(m.generation, q.ID, q.Text, text)
			return nil
		}
	}

	m.supersede()
	m.answerScroll = 0
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.session = answer.NewSession(m.generation, q.ID, q.Text)
	m.logger.Info("answer_requested", "question_id", q.ID, "generation", m.generation, "force", force)
	return requestAnswerCmd(ctx, m.answerer, m.generation, q.Text, m.cfg.RequestTimeout)
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		return m, tea.Quit

	case KeySpace:
		if !m.connected || m.source == nil {
			return m, nil
		}
		if m.listening {
			m.listening = false
			return m, listenCmd(m.source, false)
		}
		m.listening = true
		m.restart.Reset()
		m.errorMessage = ""
		m.statusText = "Starting..."
		return m, listenCmd(m.source, true)

	case KeyTab:
		m.focusedPanel = (m.focusedPanel + 1) % 3
		return m, nil

	case KeyJ, KeyDown:
		switch m.focusedPanel {
		case FocusQuestions:
			if idx := m.registry.SelectedIndex(); idx < m.registry.Len()-1 {
				m.registry.Select(idx + 1)
				m.selectionChanged()
			}
		case FocusTranscript:
			maxScroll := m.maxTranscriptScroll()
			m.transcriptScroll++
			if m.transcriptScroll >= maxScroll {
				m.transcriptScroll = maxScroll
				m.transcriptLive = true
			}
		case FocusAnswer:
			m.answerScroll++
		}
		return m, nil

	case KeyK, KeyUp:
		switch m.focusedPanel {
		case FocusQuestions:
			if idx := m.registry.SelectedIndex(); idx > 0 {
				m.registry.Select(idx - 1)
				m.selectionChanged()
			}
		case FocusTranscript:
			m.transcriptLive = false
			if m.transcriptScroll > 0 {
				m.transcriptScroll--
			}
		case FocusAnswer:
			if m.answerScroll > 0 {
				m.answerScroll--
			}
		}
		return m, nil

	case KeyEnter:
		return m, m.requestAnswer(false)

	case KeyRefetch:
		return m, m.requestAnswer(true)

	case KeyEsc:
		if m.session.QuestionID == "" || m.session.Done() || m.cancel == nil {
			return m, nil
		}
		m.supersede()
		m.session = answer.NewSession(m.generation, m.session.QuestionID, m.session.Question)
		m.statusText = "Answer cancelled"
		return m, nil

	case KeyClearQuestions:
		m.registry.Clear()
		m.selectionChanged()
		return m, nil

	case KeyClearScript:
		m.entries = nil
		m.partialText = ""
		m.transcriptScroll = 0
		m.transcriptLive = true
		m.segmenter.Reset()
		return m, nil
	}

	return m, nil
}
