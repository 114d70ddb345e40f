package capture

import (
	"errors"
	"fmt"
)

// DaemonSource reads from a recognizer daemon over two socket connections:
// one for commands and one subscribed to the event stream.
type DaemonSource struct {
	cmd    *daemonConn
	events *daemonConn
	locale string
}

// OpenDaemon connects both sockets and subscribes to events.
func OpenDaemon(socketPath, locale string) (*DaemonSource, error) {
	cmd, err := dialDaemon(socketPath)
	if err != nil {
		return nil, err
	}
	events, err := dialDaemon(socketPath)
	if err != nil {
		cmd.Close()
		return nil, err
	}

	if _, err := events.do(Command{Cmd: "subscribe"}); err != nil {
		cmd.Close()
		events.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	return &DaemonSource{cmd: cmd, events: events, locale: locale}, nil
}

// Listen sends a start command.
func (s *DaemonSource) Listen() error {
	_, err := s.cmd.do(Command{Cmd: "start", Locale: s.locale})
	return err
}

// Halt sends a stop command.
func (s *DaemonSource) Halt() error {
	_, err := s.cmd.do(Command{Cmd: "stop"})
	return err
}

// Next returns the next event the source understands; unknown events are
// skipped.
func (s *DaemonSource) Next() (Message, error) {
	for {
		ev, err := s.events.next()
		if err != nil {
			return Message{}, err
		}
		if msg, ok := eventMessage(ev); ok {
			return msg, nil
		}
	}
}

func eventMessage(ev Event) (Message, bool) {
	switch ev.Event {
	case "partial":
		return Message{Kind: KindFragment, Fragment: Fragment{Text: ev.Text}}, true
	case "segment":
		return Message{Kind: KindFragment, Fragment: Fragment{Text: ev.Text, IsFinal: true}}, true
	case "level":
		var level float32
		if ev.Mic != nil {
			level = *ev.Mic
		}
		return Message{Kind: KindLevel, Level: level}, true
	case "status":
		if ev.Recording == nil {
			return Message{}, false
		}
		return Message{Kind: KindStatus, Recording: *ev.Recording}, true
	case "error":
		return Message{Kind: KindError, Code: ev.Code, Detail: ev.Message}, true
	case "end":
		return Message{Kind: KindEnd}, true
	}
	return Message{}, false
}

// Close closes both connections.
func (s *DaemonSource) Close() error {
	return errors.Join(s.cmd.Close(), s.events.Close())
}
