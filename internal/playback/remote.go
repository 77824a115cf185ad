package playback

import (
	"time"
)

// Command types sent to a remote player.
const (
	CommandSetSource   = "set_source"
	CommandSetPosition = "set_position"
	CommandPlay        = "play"
	CommandPause       = "pause"
	CommandSetVisible  = "set_visible"
)

// Event types reported by a remote player.
const (
	EventSourceReady   = "source_ready"
	EventSeekCompleted = "seek_completed"
	EventPosition      = "position"
)

// Command is an instruction for a remote player.
type Command struct {
	Type     string  `json:"type"`
	Ref      string  `json:"ref,omitempty"`
	URL      string  `json:"url,omitempty"`
	Position float64 `json:"position"`
	Visible  bool    `json:"visible"`
}

// Event is a report from a remote player.
type Event struct {
	Type     string  `json:"type"`
	Position float64 `json:"position"`
	Playing  bool    `json:"playing"`
}

// RemoteHandle is a MediaHandle whose player lives on the other end of a
// connection. Commands go out through send; the player's reports come back
// through Deliver. Between reports the position is extrapolated from the
// wall clock while playing.
//
// RemoteHandle is not safe for concurrent use; Deliver must be called under
// the same lock as the Adapter driving it.
type RemoteHandle struct {
	send    func(Command)
	resolve func(ref string) string
	now     func() time.Time

	position   float64
	reportedAt time.Time
	playing    bool

	onReady func()
	onSeek  func()
}

// NewRemoteHandle returns a handle that emits commands through send.
// resolve maps a source reference to a URL the player can load; it may be nil.
func NewRemoteHandle(send func(Command), resolve func(ref string) string) *RemoteHandle {
	return &RemoteHandle{send: send, resolve: resolve, now: time.Now}
}

func (h *RemoteHandle) SetSource(ref string) {
	cmd := Command{Type: CommandSetSource, Ref: ref}
	if h.resolve != nil {
		cmd.URL = h.resolve(ref)
	}
	h.position = 0
	h.playing = false
	h.reportedAt = h.now()
	h.send(cmd)
}

func (h *RemoteHandle) Position() float64 {
	if !h.playing {
		return h.position
	}
	return h.position + h.now().Sub(h.reportedAt).Seconds()
}

func (h *RemoteHandle) SetPosition(seconds float64) {
	h.position = seconds
	h.reportedAt = h.now()
	h.send(Command{Type: CommandSetPosition, Position: seconds})
}

func (h *RemoteHandle) Play() {
	h.position = h.Position()
	h.reportedAt = h.now()
	h.playing = true
	h.send(Command{Type: CommandPlay})
}

func (h *RemoteHandle) Pause() {
	h.position = h.Position()
	h.reportedAt = h.now()
	h.playing = false
	h.send(Command{Type: CommandPause})
}

func (h *RemoteHandle) SetVisible(visible bool) {
	h.send(Command{Type: CommandSetVisible, Visible: visible})
}

func (h *RemoteHandle) OnSourceReady(fn func()) { h.onReady = fn }

func (h *RemoteHandle) OnSeekCompleted(fn func()) { h.onSeek = fn }

// Deliver applies a report from the player. Unknown event types are ignored.
func (h *RemoteHandle) Deliver(ev Event) {
	switch ev.Type {
	case EventSourceReady:
		if h.onReady != nil {
			h.onReady()
		}
	case EventSeekCompleted:
		h.position = ev.Position
		h.reportedAt = h.now()
		if h.onSeek != nil {
			h.onSeek()
		}
	case EventPosition:
		h.position = ev.Position
		h.reportedAt = h.now()
		h.playing = ev.Playing
	}
}
