package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kayz/promptdeck/internal/agent"
	"github.com/kayz/promptdeck/internal/logger"
)

// Console is the part of the session the relay drives.
type Console interface {
	Sift(values map[string]string) []string
	Run(ctx context.Context) (agent.Result, error)
}

// Options configures a Hub.
type Options struct {
	Console Console
	// AutoRun runs the model after every quest update and replies with the
	// output.
	AutoRun      bool
	PingInterval time.Duration
	ReadTimeout  time.Duration
}

type role string

const (
	roleQuest    role = "quest"
	roleFrontend role = "frontend"
)

// client is one connected peer. Writes are serialised by mu.
type client struct {
	role role
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Status reports which peers are connected.
type Status struct {
	Quest    bool `json:"quest"`
	Frontend bool `json:"frontend"`
	AutoRun  bool `json:"auto_run"`
}

// Hub holds at most one quest and one frontend connection. A new connection
// for a role replaces the previous one.
type Hub struct {
	console      Console
	autoRun      bool
	pingInterval time.Duration
	readTimeout  time.Duration
	upgrader     websocket.Upgrader

	mu       sync.RWMutex
	quest    *client
	frontend *client
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

func NewHub(opts Options) *Hub {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 15 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		console:      opts.Console,
		autoRun:      opts.AutoRun,
		pingInterval: opts.PingInterval,
		readTimeout:  opts.ReadTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler serves /quest, /frontend and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/quest", func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, roleQuest)
	})
	mux.HandleFunc("/frontend", func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, roleFrontend)
	})
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

func (h *Hub) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Status{Quest: h.quest != nil, Frontend: h.frontend != nil, AutoRun: h.autoRun}
}

func (h *Hub) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Status())
}

// Close drops every connection and waits for pending auto-runs.
func (h *Hub) Close() {
	h.cancel()

	h.mu.Lock()
	for _, c := range []*client{h.quest, h.frontend} {
		if c != nil {
			c.conn.Close()
		}
	}
	h.quest, h.frontend = nil, nil
	h.closed = true
	h.mu.Unlock()

	h.runs.Wait()
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, rl role) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("[Relay] WebSocket upgrade failed: %v", err)
		return
	}
	c := &client{role: rl, conn: conn}

	if old := h.register(c); old != nil {
		logger.Info("[Relay] Replacing previous %s connection", rl)
		old.conn.Close()
	}
	logger.Info("[Relay] %s connected from %s", rl, r.RemoteAddr)

	h.readLoop(c)
}

func (h *Hub) register(c *client) *client {
	h.mu.Lock()
	defer h.mu.Unlock()

	var old *client
	switch c.role {
	case roleQuest:
		old, h.quest = h.quest, c
	case roleFrontend:
		old, h.frontend = h.frontend, c
	}
	return old
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case c.role == roleQuest && h.quest == c:
		h.quest = nil
	case c.role == roleFrontend && h.frontend == c:
		h.frontend = nil
	}
}

func (h *Hub) peer(rl role) *client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if rl == roleQuest {
		return h.quest
	}
	return h.frontend
}

func (h *Hub) readLoop(c *client) {
	done := make(chan struct{})
	defer func() {
		close(done)
		h.unregister(c)
		c.conn.Close()
		logger.Info("[Relay] %s disconnected", c.role)
	}()

	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go func() {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-h.ctx.Done():
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		c.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Error("[Relay] %s read error: %v", c.role, err)
			}
			return
		}

		switch c.role {
		case roleQuest:
			h.handleQuest(c, message)
		case roleFrontend:
			h.handleFrontend(c, message)
		}
	}
}

func (h *Hub) handleQuest(c *client, message []byte) {
	logger.Debug("[Relay] Quest message: %s", truncate(string(message), 100))

	var env Envelope
	if json.Unmarshal(message, &env) == nil && env.Type == TypePing {
		c.send(TextMessage{Type: TypePong})
		return
	}

	data, values, err := ParseQuestData(message)
	if err != nil {
		logger.Warn("[Relay] Ignoring quest message: %v", err)
		c.send(TextMessage{Type: TypeError, Data: err.Error()})
		return
	}

	if fe := h.peer(roleFrontend); fe != nil {
		if err := fe.send(Envelope{Type: TypeQuestData, Data: data}); err != nil {
			logger.Error("[Relay] Failed to forward quest data: %v", err)
		}
	} else {
		logger.Debug("[Relay] Frontend not connected")
	}

	if h.console == nil {
		return
	}
	updated := h.console.Sift(values)
	logger.Info("[Relay] Sifted %d of %d values", len(updated), len(values))

	if h.autoRun && h.startRun() {
		go func() {
			defer h.runs.Done()
			h.runAndReply()
		}()
	}
}

// startRun reserves a slot in runs unless the hub is closed. Close flips
// closed under mu before waiting, so no Add can race the Wait.
func (h *Hub) startRun() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.runs.Add(1)
	return true
}

// runAndReply runs the model and sends the output to the quest. Frontends
// receive a copy.
func (h *Hub) runAndReply() {
	res, err := h.console.Run(h.ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Warn("[Relay] Auto-run failed: %v", err)
		if q := h.peer(roleQuest); q != nil {
			q.send(TextMessage{Type: TypeError, Data: fmt.Sprintf("run failed: %v", err)})
		}
		return
	}

	reply := TextMessage{Type: TypeLLMResponse, Data: res.Output}
	if q := h.peer(roleQuest); q != nil {
		if err := q.send(reply); err != nil {
			logger.Error("[Relay] Failed to send response to quest: %v", err)
		}
	}
	if fe := h.peer(roleFrontend); fe != nil {
		fe.send(reply)
	}
}

func (h *Hub) handleFrontend(c *client, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		logger.Warn("[Relay] Bad frontend message: %v", err)
		return
	}

	switch env.Type {
	case TypeLLMResponse:
		q := h.peer(roleQuest)
		if q == nil {
			logger.Debug("[Relay] Quest not connected")
			return
		}
		if err := q.send(env); err != nil {
			logger.Error("[Relay] Failed to forward response to quest: %v", err)
			return
		}
		logger.Info("[Relay] Response forwarded to quest")
	case TypePing:
		c.send(TextMessage{Type: TypePong})
	case TypePong:
	default:
		logger.Trace("[Relay] Unknown frontend message type: %s", env.Type)
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
