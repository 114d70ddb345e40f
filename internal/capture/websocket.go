package capture

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// WebSocketSource reads recognition frames from a websocket recognizer.
type WebSocketSource struct {
	conn   *websocket.Conn
	locale string

	mu      sync.Mutex // serializes writes
	pending []Message
}

// DialWebSocket connects to a websocket recognizer at url.
func DialWebSocket(ctx context.Context, url, locale string, header http.Header) (*WebSocketSource, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial recognizer: %w", err)
	}
	return &WebSocketSource{conn: conn, locale: locale}, nil
}

// Listen asks the recognizer to start a session.
func (s *WebSocketSource) Listen() error {
	return s.write(Command{Cmd: "start", Locale: s.locale})
}

// Halt asks the recognizer to stop the session.
func (s *WebSocketSource) Halt() error {
	return s.write(Command{Cmd: "stop"})
}

func (s *WebSocketSource) write(cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %s: %w", cmd.Cmd, err)
	}
	return nil
}

// Next returns the next message. A result frame may expand into several
// fragments, which are returned on successive calls. Undecodable frames are
// skipped.
func (s *WebSocketSource) Next() (Message, error) {
	for len(s.pending) == 0 {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return Message{}, fmt.Errorf("read frame: %w", err)
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		s.pending = frameMessages(f)
	}

	msg := s.pending[0]
	s.pending = s.pending[1:]
	return msg, nil
}

func frameMessages(f Frame) []Message {
	switch f.Type {
	case "result":
		frags := f.Recognition().Fragments()
		msgs := make([]Message, 0, len(frags))
		for _, frag := range frags {
			msgs = append(msgs, Message{Kind: KindFragment, Fragment: frag})
		}
		return msgs
	case "level":
		if f.Level == nil {
			return nil
		}
		return []Message{{Kind: KindLevel, Level: *f.Level}}
	case "status":
		if f.Recording == nil {
			return nil
		}
		return []Message{{Kind: KindStatus, Recording: *f.Recording}}
	case "error":
		return []Message{{Kind: KindError, Code: f.Error, Detail: f.Message}}
	case "end":
		return []Message{{Kind: KindEnd}}
	}
	return nil
}

// Close sends a close frame and closes the connection.
func (s *WebSocketSource) Close() error {
	s.mu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.mu.Unlock()
	return s.conn.Close()
}
