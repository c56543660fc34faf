package terminal

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// Message types on the client channel
const (
	msgAuth   = "auth"
	msgData   = "data"
	msgResize = "resize"
)

// clientMessage is one framed message from the browser side
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Rows int             `json:"rows"`
	Cols int             `json:"cols"`
}

// authData is the payload of the first message on a session
type authData struct {
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	TermCols int    `json:"term_cols"`
	TermRows int    `json:"term_rows"`
}

// Bridge relays interactive shell sessions between websocket clients and
// devices. One remote shell per client session, torn down when either side
// closes.
type Bridge struct {
	sshPort     int
	dialTimeout time.Duration
}

// NewBridge creates a terminal bridge
func NewBridge(sshPort int, dialTimeout time.Duration) *Bridge {
	return &Bridge{
		sshPort:     sshPort,
		dialTimeout: dialTimeout,
	}
}

// Serve runs one terminal session over an established websocket. The first
// client message must be an auth message; everything after is keystrokes or
// resizes. Errors before the shell is up go to the client as inline text
// since the channel itself is already open.
func (b *Bridge) Serve(conn *websocket.Conn) {
	sessionID := uuid.New().String()
	writer := &wsWriter{conn: conn}

	auth, err := readAuth(conn)
	if err != nil {
		writer.writeError(err)
		return
	}

	logger := log.With().
		Str("session_id", sessionID).
		Str("host", auth.Host).
		Str("user", auth.User).
		Logger()

	client, session, stdin, err := b.openShell(auth, writer)
	if err != nil {
		logger.Warn().Err(err).Msg("Terminal shell open failed")
		writer.writeError(err)
		return
	}
	defer client.Close()
	defer session.Close()

	logger.Info().Msg("Terminal session started")

	// Remote side closed: unblock the client read loop
	done := make(chan struct{})
	go func() {
		_ = session.Wait()
		close(done)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case msgData:
			var keys string
			if err := json.Unmarshal(msg.Data, &keys); err != nil {
				continue
			}
			if _, err := stdin.Write([]byte(keys)); err != nil {
				logger.Debug().Err(err).Msg("Terminal stdin write failed")
			}
		case msgResize:
			if msg.Rows > 0 && msg.Cols > 0 {
				if err := session.WindowChange(msg.Rows, msg.Cols); err != nil {
					logger.Debug().Err(err).Msg("Terminal resize failed")
				}
			}
		}
	}

	session.Close()
	<-done
	logger.Info().Msg("Terminal session closed")
}

// readAuth reads and validates the opening auth message
func readAuth(conn *websocket.Conn) (*authData, error) {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read auth message: %w", err)
	}

	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("malformed auth message")
	}
	if msg.Type != msgAuth {
		return nil, fmt.Errorf("first message must be auth, got %q", msg.Type)
	}

	var auth authData
	if err := json.Unmarshal(msg.Data, &auth); err != nil {
		return nil, fmt.Errorf("malformed auth payload")
	}
	if auth.Host == "" || auth.User == "" {
		return nil, fmt.Errorf("auth requires host and user")
	}
	if auth.TermCols <= 0 {
		auth.TermCols = 80
	}
	if auth.TermRows <= 0 {
		auth.TermRows = 24
	}
	return &auth, nil
}

// openShell dials the device's interactive shell port, requests a pty with
// the client's geometry and starts a shell with output wired to the client
func (b *Bridge) openShell(auth *authData, writer *wsWriter) (*ssh.Client, *ssh.Session, io.WriteCloser, error) {
	config := &ssh.ClientConfig{
		User: auth.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(auth.Password),
		},
		// Router host keys are self-managed on the LAN; there is no
		// known_hosts to verify against.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         b.dialTimeout,
	}

	addr := net.JoinHostPort(auth.Host, strconv.Itoa(b.sshPort))
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("open session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm-256color", auth.TermRows, auth.TermCols, modes); err != nil {
		session.Close()
		client.Close()
		return nil, nil, nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, nil, nil, fmt.Errorf("open stdin: %w", err)
	}
	session.Stdout = writer
	session.Stderr = writer

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, nil, nil, fmt.Errorf("start shell: %w", err)
	}

	return client, session, stdin, nil
}

// wsWriter serializes remote shell output onto the websocket. The shell's
// stdout and stderr share it, so writes are locked.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Write implements io.Writer
func (w *wsWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// writeError sends an inline diagnostic to the client, prefixed so it
// stands out in the terminal output
func (w *wsWriter) writeError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	text := "\r\n*** " + err.Error() + "\r\n"
	_ = w.conn.WriteMessage(websocket.TextMessage, []byte(text))
}
