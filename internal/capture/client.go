package capture

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// ErrConnectionClosed is returned when the peer closes the socket.
var ErrConnectionClosed = errors.New("connection closed")

// commandTimeout bounds the wait for a command acknowledgement.
const commandTimeout = 5 * time.Second

// SocketPath returns the default recognizer daemon socket path.
func SocketPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "prompter", "capture.sock")
}

// CommandError reports a command the daemon answered with ok=false.
type CommandError struct {
	Cmd    string
	Reason string
}

func (e *CommandError) Error() string {
	if e.Reason == "" {
		return e.Cmd + " rejected"
	}
	return fmt.Sprintf("%s rejected: %s", e.Cmd, e.Reason)
}

// daemonConn is one NDJSON connection to the recognizer daemon. Commands
// and their acknowledgements share the stream with pushed events, so a
// connection is used either for commands or, after subscribing, for events.
type daemonConn struct {
	mu   sync.Mutex
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func dialDaemon(socketPath string) (*daemonConn, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial recognizer %s: %w", socketPath, err)
	}
	return &daemonConn{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}, nil
}

// do sends cmd and waits for its acknowledgement. A rejected command comes
// back as a *CommandError.
func (c *daemonConn) do(cmd Command) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enc.Encode(cmd); err != nil {
		return Response{}, fmt.Errorf("send %s: %w", cmd.Cmd, err)
	}

	c.conn.SetReadDeadline(time.Now().Add(commandTimeout))
	defer c.conn.SetReadDeadline(time.Time{})

	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return Response{}, readError(cmd.Cmd+" response", err)
	}
	if !resp.OK {
		return resp, &CommandError{Cmd: cmd.Cmd, Reason: resp.Error}
	}
	return resp, nil
}

// next blocks for the next pushed event.
func (c *daemonConn) next() (Event, error) {
	var ev Event
	if err := c.dec.Decode(&ev); err != nil {
		return Event{}, readError("event", err)
	}
	return ev, nil
}

func (c *daemonConn) Close() error {
	return c.conn.Close()
}

func readError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return ErrConnectionClosed
	}
	return fmt.Errorf("read %s: %w", what, err)
}
