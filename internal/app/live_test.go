package app

import (
	"fmt"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/prompter/internal/capture"
)

// TestLiveTUIFlow exercises the model against a running recognizer daemon.
// Skipped if the daemon isn't running.
func TestLiveTUIFlow(t *testing.T) {
	sockPath := capture.SocketPath()
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		t.Skip("recognizer daemon not running")
	}

	m := newTestModel(nil)

	m, _ = applyUpdate(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	view := m.View()
	if view == "Initializing..." {
		t.Error("view should render after WindowSizeMsg")
	}
	fmt.Println("=== Initial View ===")
	fmt.Println(view)

	src, err := capture.OpenDaemon(sockPath, "en-US")
	if err != nil {
		t.Fatalf("open daemon: %v", err)
	}
	defer src.Close()

	m, _ = applyUpdate(m, SourceConnectedMsg{Source: src})
	if !m.connected {
		t.Fatal("expected connected")
	}
	fmt.Printf("Connected: status=%q\n", m.statusText)

	m, cmd := applyUpdate(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if cmd == nil {
		t.Fatal("expected listen command")
	}
	m, _ = applyUpdate(m, cmd())
	if m.errorMessage != "" {
		t.Fatalf("listen failed: %s", m.errorMessage)
	}
	fmt.Printf("\nListening: status=%q\n", m.statusText)

	fmt.Println("\n=== Collecting messages for 5 seconds ===")
	counts := map[capture.Kind]int{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.After(5 * time.Second)
		for {
			select {
			case <-deadline:
				return
			default:
				msg, err := src.Next()
				if err != nil {
					fmt.Printf("Read error: %v\n", err)
					return
				}
				counts[msg.Kind]++
				m.handleCapture(msg)

				switch msg.Kind {
				case capture.KindFragment:
					fmt.Printf("  fragment: %q (final=%v)\n", msg.Fragment.Text, msg.Fragment.IsFinal)
				case capture.KindStatus:
					fmt.Printf("  status: recording=%v\n", msg.Recording)
				case capture.KindError:
					fmt.Printf("  error: %s %s\n", msg.Code, msg.Detail)
				}
			}
		}
	}()

	<-done

	view = m.View()
	fmt.Println("\n=== Listening View ===")
	fmt.Println(view)

	m, cmd = applyUpdate(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if cmd != nil {
		m, _ = applyUpdate(m, cmd())
	}
	fmt.Printf("\nStopped: listening=%v\n", m.listening)

	fmt.Println("\n=== Message Summary ===")
	total := 0
	for kind, count := range counts {
		fmt.Printf("  %s: %d\n", kind, count)
		total += count
	}
	fmt.Printf("  Total: %d messages\n", total)
	fmt.Printf("  Transcript entries: %d\n", len(m.entries))
	fmt.Printf("  Questions: %d\n", m.registry.Len())

	if total == 0 {
		t.Error("expected at least some messages during 5s of listening")
	}
}
