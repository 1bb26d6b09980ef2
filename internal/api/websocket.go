package api

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"xkeenui/internal/logger"
	"xkeenui/internal/logs"

	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

type clientMessage struct {
	Type  string `json:"type"`
	Query string `json:"query"`
	File  string `json:"file"`
}

// logStream is one websocket client following a log file.
type logStream struct {
	srv  *Server
	conn *websocket.Conn

	writeMu sync.Mutex

	mu     sync.Mutex
	path   string
	offset int64
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Debugf("Websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	st := &logStream{srv: s, conn: conn, path: s.cfg.LogPath(r.URL.Query().Get("file"))}
	st.run(r.Context())
}

func (st *logStream) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	st.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	if err := st.sendInitial(st.currentPath()); err != nil {
		return
	}

	go func() {
		defer cancel()
		st.readLoop()
	}()

	period := st.srv.cfg.Server.PollPeriod
	if period <= 0 {
		period = 500 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := st.poll(); err != nil {
				logger.Log.Debugf("Websocket closed: %v", err)
				return
			}
		}
	}
}

func (st *logStream) writeJSON(v any) error {
	st.writeMu.Lock()
	defer st.writeMu.Unlock()
	st.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return st.conn.WriteJSON(v)
}

func (st *logStream) currentPath() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.path
}

// sendInitial switches the stream to path and sends its cached lines. The tail
// offset is taken before the lines are read so a poll in between cannot resend
// the whole file as an append.
func (st *logStream) sendInitial(path string) error {
	var size int64
	if stat, err := os.Stat(path); err == nil {
		size = stat.Size()
	}
	st.mu.Lock()
	st.path, st.offset = path, size
	st.mu.Unlock()

	lines := st.srv.logs.Lines(path)
	return st.writeJSON(map[string]any{
		"type":         "initial",
		"allLines":     lines,
		"displayLines": logs.Tail(lines, st.srv.cfg.Logs.Display),
	})
}

func (st *logStream) readLoop() {
	for {
		var msg clientMessage
		if err := st.conn.ReadJSON(&msg); err != nil {
			return
		}
		st.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var err error
		switch msg.Type {
		case "filter":
			lines := st.srv.logs.Lines(st.currentPath())
			err = st.writeJSON(map[string]any{"type": "filtered", "lines": logs.Filter(lines, msg.Query)})
		case "switchFile":
			err = st.sendInitial(st.srv.cfg.LogPath(msg.File))
		case "reload":
			st.srv.logs.Reset()
			err = st.sendInitial(st.currentPath())
		case "ping":
			err = st.writeJSON(map[string]string{"type": "pong"})
		}
		if err != nil {
			return
		}
	}
}

// poll pushes lines appended since the last tick. A vanished or truncated
// file makes the client clear its view.
func (st *logStream) poll() error {
	st.mu.Lock()
	path, offset := st.path, st.offset
	st.mu.Unlock()

	stat, err := os.Stat(path)
	if err != nil && offset == 0 {
		return nil
	}
	if err != nil || stat.Size() < offset {
		if werr := st.writeJSON(map[string]string{"type": "clear"}); werr != nil {
			return werr
		}
		if err == nil {
			return st.sendInitial(path)
		}
		st.mu.Lock()
		if st.path == path {
			st.offset = 0
		}
		st.mu.Unlock()
		return nil
	}
	if stat.Size() == offset {
		return nil
	}

	lines, pos, err := logs.ReadFrom(path, offset, st.srv.settings.TimezoneOffset())
	if err != nil {
		logger.Log.Debugf("Tailing %s: %v", path, err)
		return nil
	}
	if len(lines) > 0 {
		if err := st.writeJSON(map[string]any{"type": "append", "content": strings.Join(lines, "\n")}); err != nil {
			return err
		}
	}
	st.mu.Lock()
	if st.path == path {
		st.offset = pos
	}
	st.mu.Unlock()
	return nil
}
