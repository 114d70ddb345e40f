package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRecognizer waits for a start command, then sends frames.
func wsRecognizer(t *testing.T, frames []string, commands chan<- Command) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd Command
			if err := json.Unmarshal(data, &cmd); err != nil {
				return
			}
			if commands != nil {
				commands <- cmd
			}
			if cmd.Cmd != "start" {
				continue
			}
			for _, f := range frames {
				if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketSourceFrames(t *testing.T) {
	url := wsRecognizer(t, []string{
		`{"type":"result","resultIndex":0,"results":[{"isFinal":false,"alternatives":[{"transcript":"how does","confidence":0.4}]}]}`,
		`not json`,
		`{"type":"result","resultIndex":0,"results":[{"isFinal":true,"alternatives":[{"transcript":"How does DNS work?","confidence":0.9}]},{"isFinal":false,"alternatives":[{"transcript":"and","confidence":0.2}]}]}`,
		`{"type":"level","level":0.5}`,
		`{"type":"error","error":"network"}`,
		`{"type":"end"}`,
	}, nil)

	src, err := DialWebSocket(context.Background(), url, "en-US", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer src.Close()

	if err := src.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}

	want := []Message{
		{Kind: KindFragment, Fragment: Fragment{Text: "how does"}},
		{Kind: KindFragment, Fragment: Fragment{Text: "How does DNS work?", IsFinal: true}},
		{Kind: KindFragment, Fragment: Fragment{Text: "and"}},
		{Kind: KindLevel, Level: 0.5},
		{Kind: KindError, Code: CodeNetwork},
		{Kind: KindEnd},
	}
	for i, w := range want {
		got, err := src.Next()
		if err != nil {
			t.Fatalf("message %d: %v", i, err)
		}
		if got != w {
			t.Errorf("message %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestWebSocketSourceCommands(t *testing.T) {
	commands := make(chan Command, 2)
	url := wsRecognizer(t, nil, commands)

	src, err := DialWebSocket(context.Background(), url, "de-DE", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer src.Close()

	if err := src.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	if err := src.Halt(); err != nil {
		t.Fatalf("halt: %v", err)
	}

	for _, want := range []Command{{Cmd: "start", Locale: "de-DE"}, {Cmd: "stop"}} {
		got := <-commands
		if got.Cmd != want.Cmd || got.Locale != want.Locale {
			t.Errorf("command = %+v, want %+v", got, want)
		}
	}
}

func TestWebSocketSourceClosedByPeer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	src, err := DialWebSocket(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), "", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer src.Close()

	if _, err := src.Next(); err == nil {
		t.Error("expected error after peer closed")
	}
}

func TestDialWebSocketFailure(t *testing.T) {
	if _, err := DialWebSocket(context.Background(), "ws://127.0.0.1:1/none", "", nil); err == nil {
		t.Error("expected dial error")
	}
}
