package mirror

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrUnauthorized = errors.New("mirror: bad spectator token")

// HubConfig configures the spectator hub.
type HubConfig struct {
	// TokenHash is a bcrypt hash spectators must match with ?token=. Empty
	// disables the check.
	TokenHash    string
	SendQueue    int
	WriteTimeout time.Duration
}

// Hub fans snapshots out to websocket spectators. Delivery is best-effort: a
// spectator whose queue is full misses frames rather than slowing the loop.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu     sync.Mutex
	subs   map[uuid.UUID]*subscriber
	closed bool
}

type subscriber struct {
	id      uuid.UUID
	conn    *websocket.Conn
	send    chan []byte
	dropped int
}

func NewHub(cfg HubConfig, log *zap.Logger) *Hub {
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = 16
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:  log,
		subs: make(map[uuid.UUID]*subscriber),
	}
}

// HashToken produces a value suitable for HubConfig.TokenHash.
func HashToken(token string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(h), nil
}

// Authorize checks a presented token against the configured hash.
func (h *Hub) Authorize(token string) error {
	if h.cfg.TokenHash == "" {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(h.cfg.TokenHash), []byte(token)) != nil {
		return ErrUnauthorized
	}
	return nil
}

// ServeHTTP upgrades a spectator connection and starts its writer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Authorize(r.URL.Query().Get("token")); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("mirror upgrade failed", zap.Error(err))
		return
	}
	sub := &subscriber{id: uuid.New(), conn: conn, send: make(chan []byte, h.cfg.SendQueue)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.subs[sub.id] = sub
	h.mu.Unlock()
	h.log.Info("spectator connected", zap.String("id", sub.id.String()), zap.String("remote", r.RemoteAddr))

	go h.writeLoop(sub)
	go h.readLoop(sub)
}

// Broadcast queues msg for every spectator without blocking.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub.send <- msg:
		default:
			sub.dropped++
		}
	}
}

// Count returns the number of connected spectators.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every spectator and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		close(sub.send)
		delete(h.subs, id)
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.send)
	h.log.Info("spectator disconnected", zap.String("id", sub.id.String()), zap.Int("dropped", sub.dropped))
}

func (h *Hub) writeLoop(sub *subscriber) {
	defer sub.conn.Close()
	for msg := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
		if err := sub.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			h.remove(sub)
			return
		}
	}
	sub.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// readLoop discards spectator input and notices disconnects.
func (h *Hub) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.remove(sub)
			return
		}
	}
}
