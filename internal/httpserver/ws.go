// internal/httpserver/ws.go
//
// Websocket stream for one live session.
//
// Server -> client: "frame" (session view), "ack" (command result, echoes
// seq), "error". Client -> server: drag, drop, pause, key.
//
// Notes:
//   - Writes are serialized by a mutex; frames and acks share the socket.
//   - The socket is closed normally once the session closes.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/ecosort/internal/game"
	"github.com/robalobadob/ecosort/internal/session"
)

const wsWriteWait = 5 * time.Second

// clientMessage is a command sent by the browser over the socket.
type clientMessage struct {
	Type       string `json:"type"` // "drag" | "drop" | "pause" | "key" | "view"
	Seq        uint64 `json:"seq,omitempty"`
	InstanceID string `json:"instanceId,omitempty"`
	Bin        string `json:"bin,omitempty"`
	Key        string `json:"key,omitempty"`
}

// serverMessage is either a pushed frame or the reply to a command.
type serverMessage struct {
	Type   string           `json:"type"` // "frame" | "ack" | "error"
	Seq    uint64           `json:"seq,omitempty"`
	OK     bool             `json:"ok"`
	Result *game.DropResult `json:"result,omitempty"`
	View   *session.View    `json:"view,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(m serverMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(m)
}

func (c *wsConn) close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
	_ = c.conn.Close()
}

// handleGameWS streams a session's frames and accepts commands.
//
// The writer goroutine forwards every published frame. The read loop applies
// commands and acks them. When the session closes the frame channel closes,
// the socket is closed and the read loop ends; when the client leaves, the
// subscription is dropped. The session itself keeps running either way.
func (s *Server) handleGameWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	logger := hlog.FromRequest(r).With().Str("session", sess.ID()).Logger()

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn := &wsConn{conn: raw}
	frames, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial frame so the client can render before the first tick.
	if v, err := sess.View(ctx); err == nil {
		if err := conn.send(serverMessage{Type: "frame", View: &v}); err != nil {
			_ = raw.Close()
			return
		}
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for v := range frames {
			if err := conn.send(serverMessage{Type: "frame", View: &v}); err != nil {
				_ = raw.Close()
				return
			}
		}
		conn.close(websocket.CloseNormalClosure, "session closed")
	}()

	for {
		_, payload, err := raw.ReadMessage()
		if err != nil {
			break
		}
		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Debug().Err(err).Msg("discarding malformed message")
			continue
		}
		reply := s.applyWS(ctx, sess, msg)
		if err := conn.send(reply); err != nil {
			break
		}
	}

	unsubscribe()
	<-writerDone
	_ = raw.Close()
}

// applyWS runs one client command against the session.
func (s *Server) applyWS(ctx context.Context, sess *session.Session, msg clientMessage) serverMessage {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out := serverMessage{Type: "ack", Seq: msg.Seq}
	var (
		v   session.View
		err error
	)
	switch msg.Type {
	case "drag":
		out.OK, v, err = sess.BeginDrag(ctx, msg.InstanceID)
	case "drop":
		var res game.DropResult
		res, out.OK, v, err = sess.Drop(ctx, msg.InstanceID, msg.Bin)
		if out.OK {
			out.Result = &res
		}
	case "pause":
		_, v, err = sess.TogglePause(ctx)
		out.OK = !v.Over
	case "key":
		out.OK, v, err = sess.PressKey(ctx, msg.Key)
	case "view":
		v, err = sess.View(ctx)
		out.OK = err == nil
	default:
		return serverMessage{Type: "error", Seq: msg.Seq, Error: "unknown command " + msg.Type}
	}
	if err != nil {
		return serverMessage{Type: "error", Seq: msg.Seq, Error: err.Error()}
	}
	out.View = &v
	return out
}
