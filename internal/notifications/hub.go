package notifications

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/canteen/internal/lib/logger"
	"github.com/ziadkadry99/canteen/internal/lib/logger/sl"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans JSON messages out to websocket subscribers by topic. Employees
// subscribe under their employee id; the kitchen board uses "board".
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
	log  *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{subs: make(map[string]map[chan []byte]struct{}), log: log}
}

// Subscribe registers a buffered receiver for topic. The returned func
// unsubscribes and closes the channel.
func (h *Hub) Subscribe(topic string) (<-chan []byte, func()) {
	ch := make(chan []byte, sendBuffer)
	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan []byte]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[topic], ch)
			if len(h.subs[topic]) == 0 {
				delete(h.subs, topic)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Push sends v as JSON to every subscriber of topic. Subscribers whose
// buffer is full miss the message.
func (h *Hub) Push(topic string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("failed to encode hub message", slog.String("topic", topic), sl.Err(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[topic] {
		select {
		case ch <- data:
		default:
			h.log.Warn("dropping hub message for slow subscriber", slog.String("topic", topic))
		}
	}
}

// Subscribers counts the live subscribers of topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// ServeWS upgrades the request and streams topic to the client until
// either side closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, topic string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", sl.Err(err))
		return
	}
	defer conn.Close()

	msgs, cancel := h.Subscribe(topic)
	defer cancel()

	// Reads only detect the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Debug("websocket read", slog.String("topic", topic), sl.Err(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("websocket write", slog.String("topic", topic), sl.Err(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
