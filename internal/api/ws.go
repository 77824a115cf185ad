package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heimdex/heimdex-editor/internal/edit"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clockPeriod    = 100 * time.Millisecond
	maxMessageSize = 8192
	sendBuffer     = 64
	resolveTimeout = 2 * time.Second
)

// Messages sent to the client.
const (
	msgState   = "state"
	msgClock   = "clock"
	msgCommand = "command"
	msgError   = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || isAllowedOrigin(origin)
	},
}

type outMessage struct {
	Type     string            `json:"type"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Command  *playback.Command `json:"command,omitempty"`
	Time     *float64          `json:"time,omitempty"`
	State    string            `json:"state,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// inMessage covers every client message. Fields unused by a type are ignored.
type inMessage struct {
	Type     string  `json:"type"`
	ID       string  `json:"id"`
	Mode     string  `json:"mode"`
	X        float64 `json:"x"`
	Time     float64 `json:"time"`
	Position float64 `json:"position"`
	Playing  bool    `json:"playing"`
}

// wsConn is one client attached to a project. It acts as the project's
// remote media handle and receives snapshots after every change.
type wsConn struct {
	conn   *websocket.Conn
	sess   *session.Session
	handle *playback.RemoteHandle
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// Owned by readPump.
	drag      *edit.DragSession
	scrubbing bool
}

func wsHandler(cfg ServerConfig, urls *mediaURLs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(cfg, w, r)
		if !ok {
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.Logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		c := &wsConn{
			conn:   conn,
			sess:   sess,
			logger: logging.WithProject(cfg.Logger, sess.ID()),
			send:   make(chan []byte, sendBuffer),
			done:   make(chan struct{}),
		}
		c.handle = playback.NewRemoteHandle(c.sendCommand, urls.Lookup)

		snap := sess.Snapshot()
		refs := make([]string, 0, len(snap.Elements))
		for _, el := range snap.Elements {
			refs = append(refs, el.SourceRef)
		}
		urls.Warm(r.Context(), refs...)
		c.enqueue(outMessage{Type: msgState, Snapshot: &snap})

		unsubscribe := sess.Subscribe(func(s session.Snapshot) {
			c.enqueue(outMessage{Type: msgState, Snapshot: &s})
		})
		sess.AttachHandle(c.handle)
		c.logger.Info("media client attached")

		go c.writePump()
		c.readPump()

		if c.scrubbing {
			sess.EndScrub()
		}
		sess.EndDrag(c.drag)
		sess.DetachHandle(c.handle)
		unsubscribe()
		c.close()
		c.logger.Info("media client detached")
	}
}

func (c *wsConn) sendCommand(cmd playback.Command) {
	c.enqueue(outMessage{Type: msgCommand, Command: &cmd})
}

// enqueue never blocks; it may be called with the session lock held.
// Messages are dropped when the client falls behind.
func (c *wsConn) enqueue(msg outMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to encode message", "type", msg.Type, "error", err)
		return
	}
	select {
	case <-c.done:
	case c.send <- b:
	default:
		c.logger.Warn("client send buffer full, dropping message", "type", msg.Type)
	}
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *wsConn) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg inMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(outMessage{Type: msgError, Error: "invalid message"})
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *wsConn) handleMessage(msg inMessage) {
	switch msg.Type {
	case "drag_begin":
		mode, err := edit.ParseMode(msg.Mode)
		if err != nil {
			c.enqueue(outMessage{Type: msgError, Error: err.Error()})
			return
		}
		c.sess.EndDrag(c.drag)
		d, err := c.sess.BeginDrag(msg.ID, mode, msg.X)
		if err != nil {
			c.drag = nil
			c.enqueue(outMessage{Type: msgError, Error: err.Error()})
			return
		}
		c.drag = d
	case "drag_move":
		if c.drag != nil {
			c.sess.UpdateDrag(c.drag, msg.X)
		}
	case "drag_end":
		c.sess.EndDrag(c.drag)
		c.drag = nil

	case "scrub_begin":
		c.scrubbing = true
		c.sess.StartScrub()
	case "scrub_move":
		c.sess.ScrubTo(msg.Time)
	case "scrub_end":
		c.scrubbing = false
		c.sess.EndScrub()

	case "play":
		c.sess.Play()
	case "pause":
		c.sess.Pause()
	case "toggle":
		c.sess.Toggle()
	case "seek":
		c.sess.Seek(msg.Time)

	case playback.EventSourceReady, playback.EventSeekCompleted, playback.EventPosition:
		ev := playback.Event{Type: msg.Type, Position: msg.Position, Playing: msg.Playing}
		c.sess.Do(func() { c.handle.Deliver(ev) })

	default:
		c.enqueue(outMessage{Type: msgError, Error: "unknown message type"})
	}
}

func (c *wsConn) writePump() {
	ping := time.NewTicker(pingPeriod)
	clock := time.NewTicker(clockPeriod)
	defer func() {
		ping.Stop()
		clock.Stop()
		c.conn.Close()
	}()

	lastTime, lastState := -1.0, ""
	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case b := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.close()
				return
			}
		case <-clock.C:
			t, state := c.sess.Playhead()
			if t == lastTime && state == lastState {
				continue
			}
			lastTime, lastState = t, state
			b, _ := json.Marshal(outMessage{Type: msgClock, Time: &t, State: state})
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.close()
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
