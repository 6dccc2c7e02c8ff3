package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	frameBacklog   = 256 // ring buffer size backing resumable delivery
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame is one push-channel message: a monotonically increasing Seq makes
// delivery at-least-once and resumable by last-seen sequence number.
type Frame struct {
	Seq     uint64      `json:"seq"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// subscriber is an in-process consumer of the broadcast feed. It generalizes
// the chatroom mini's Client to an arbitrary channel consumer rather than one
// tied to a network connection; ServeWS below bridges a websocket.Conn to one.
type subscriber struct {
	send chan Frame
}

// hub is a single broadcast point for one bot instance — the chatroom mini's
// Hub/Room pair collapsed to one room, since every observer of this engine
// watches the same feed.
type hub struct {
	mu      sync.RWMutex
	seq     uint64
	backlog []Frame // ring buffer of the last frameBacklog frames, oldest first
	subs    map[*subscriber]bool
}

func newHub() *hub {
	return &hub{subs: make(map[*subscriber]bool)}
}

// publish assigns the next sequence number to a frame, retains it in the
// backlog, and fans it out to every connected subscriber. A subscriber whose
// buffer is full is dropped rather than allowed to block the broadcast.
func (h *hub) publish(frameType string, payload interface{}) Frame {
	h.mu.Lock()
	h.seq++
	frame := Frame{Seq: h.seq, Type: frameType, Payload: payload, At: time.Now()}
	h.backlog = append(h.backlog, frame)
	if len(h.backlog) > frameBacklog {
		h.backlog = h.backlog[len(h.backlog)-frameBacklog:]
	}
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		select {
		case s.send <- frame:
		default:
			h.removeSubscriber(s)
			close(s.send)
		}
	}
	return frame
}

// subscribe registers a new subscriber and replays every backlog frame with
// Seq > lastSeq before live frames start flowing, giving resumable,
// at-least-once delivery across reconnects.
func (h *hub) subscribe(lastSeq uint64) *subscriber {
	s := &subscriber{send: make(chan Frame, frameBacklog)}

	h.mu.Lock()
	replay := make([]Frame, 0)
	for _, f := range h.backlog {
		if f.Seq > lastSeq {
			replay = append(replay, f)
		}
	}
	h.subs[s] = true
	h.mu.Unlock()

	for _, f := range replay {
		s.send <- f
	}
	return s
}

func (h *hub) removeSubscriber(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, s)
}

func (h *hub) subscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ServeWS upgrades an HTTP request to a websocket connection and bridges it
// to the publisher's broadcast feed, mirroring the chatroom mini's
// ReadPump/WritePump pump pair (ping/pong keepalive, write deadlines).
func ServeWS(p *Publisher, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	lastSeq := parseLastSeq(r)
	unsubscribe, frames := p.Subscribe(lastSeq)
	defer unsubscribe()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go drainReads(conn)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case frame, ok := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			body, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drainReads discards inbound messages; this is a push-only feed, but the
// read pump must still run to process control frames (ping/close) per the
// gorilla/websocket contract.
func drainReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func parseLastSeq(r *http.Request) uint64 {
	raw := r.URL.Query().Get("lastSeq")
	if raw == "" {
		return 0
	}
	var n uint64
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}
