package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/salesboard/internal/domain/dedupe"
	"github.com/okian/salesboard/internal/domain/model"
	"github.com/okian/salesboard/pkg/logger"
	"github.com/okian/salesboard/pkg/metrics"
)

// WebSocket timings.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 32
)

// Viewer report types.
const (
	reportEnded = "playback_ended"
	reportError = "playback_error"
)

// report is the only message viewers send.
type report struct {
	Type           string `json:"type"`
	InterstitialID string `json:"interstitial_id"`
	Detail         string `json:"detail,omitempty"`
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

type pending struct {
	id   string
	done chan model.PlaybackResult
}

// Hub fans frames out to every connected viewer and collects their
// playback reports.
type Hub struct {
	upgrader websocket.Upgrader
	reports  dedupe.Deduper
	logger   logger.Logger

	mu        sync.RWMutex
	clients   map[*client]struct{}
	lastFrame []byte // last render frame, replayed to new viewers
	active    []byte // interstitial_start frame while one is playing
	waiting   *pending
	closed    bool
}

// NewHub creates an empty hub.
func NewHub(reports dedupe.Deduper) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the board is a kiosk page on arbitrary hosts
			CheckOrigin: func(*http.Request) bool { return true },
		},
		reports: reports,
		logger:  logger.Get().Named("hub"),
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ReportsTracked returns how many interstitial ids have an accepted report on record.
func (h *Hub) ReportsTracked() int { return h.reports.Size() }

// ServeWS upgrades the request and registers the viewer.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	for _, msg := range [][]byte{h.lastFrame, h.active} {
		if msg != nil {
			c.send <- msg
		}
	}
	metrics.UpdateWSClients(len(h.clients))
	h.logger.Info(context.Background(), "viewer connected",
		logger.String("client_id", c.id),
		logger.Int("clients", len(h.clients)),
	)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked drops c. When the last viewer leaves during an interstitial
// the wait is released, since nobody is left to report.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.UpdateWSClients(len(h.clients))
	h.logger.Info(context.Background(), "viewer disconnected",
		logger.String("client_id", c.id),
		logger.Int("clients", len(h.clients)),
	)
	if len(h.clients) == 0 && h.waiting != nil {
		h.resolveLocked(model.PlaybackResult{
			InterstitialID: h.waiting.id,
			Status:         model.PlaybackNoViewers,
			Detail:         "last viewer left",
		})
	}
}

// Broadcast sends f to every viewer. Viewers whose buffer is full are
// disconnected; they resync from the last frame on reconnect.
func (h *Hub) Broadcast(ctx context.Context, f model.Frame) error { //nolint:gocritic // hugeParam: frames travel by value
	msg, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame %s: %w", f.ID, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch f.Kind {
	case model.FrameRender:
		h.lastFrame = msg
	case model.FrameInterstitialStart:
		h.active = msg
	case model.FrameInterstitialEnd:
		h.active = nil
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			metrics.RecordFrameDropped("slow_viewer")
			h.logger.Warn(ctx, "viewer too slow, disconnecting", logger.String("client_id", c.id))
			h.removeLocked(c)
		}
	}
	return nil
}

// Play arms the wait for in. With no viewers connected the wait resolves
// at once, so an empty room never holds the sequencer.
func (h *Hub) Play(_ context.Context, in model.Interstitial) (<-chan model.PlaybackResult, error) {
	done := make(chan model.PlaybackResult, 1)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.waiting != nil {
		h.resolveLocked(model.PlaybackResult{
			InterstitialID: h.waiting.id,
			Status:         model.PlaybackCancelled,
			Detail:         "superseded",
		})
	}
	if len(h.clients) == 0 {
		done <- model.PlaybackResult{InterstitialID: in.ID, Status: model.PlaybackNoViewers}
		return done, nil
	}
	h.waiting = &pending{id: in.ID, done: done}
	return done, nil
}

// handleReport accepts the first report per interstitial. Later reports for
// the same interstitial, and reports for one that is not being waited on,
// are ignored. Ignored stale ids are forgotten so they never block a later wait.
func (h *Hub) handleReport(ctx context.Context, c *client, rep report) {
	var status model.PlaybackStatus
	switch rep.Type {
	case reportEnded:
		status = model.PlaybackEnded
	case reportError:
		status = model.PlaybackError
	default:
		h.logger.Debug(ctx, "unknown viewer message", logger.String("client_id", c.id), logger.String("type", rep.Type))
		return
	}
	if rep.InterstitialID == "" {
		return
	}
	if h.reports.SeenAndRecord(ctx, rep.InterstitialID) {
		metrics.RecordPlaybackReport("duplicate")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.waiting == nil || h.waiting.id != rep.InterstitialID {
		h.reports.Forget(ctx, rep.InterstitialID)
		metrics.RecordPlaybackReport("stale")
		return
	}
	metrics.RecordPlaybackReport("accepted")
	h.logger.Info(ctx, "playback reported",
		logger.String("client_id", c.id),
		logger.String("interstitial_id", rep.InterstitialID),
		logger.String("status", string(status)),
	)
	h.resolveLocked(model.PlaybackResult{InterstitialID: rep.InterstitialID, Status: status, Detail: rep.Detail})
}

func (h *Hub) resolveLocked(res model.PlaybackResult) {
	h.waiting.done <- res
	h.waiting = nil
}

// Close disconnects every viewer and releases a pending wait.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.waiting != nil {
		h.resolveLocked(model.PlaybackResult{InterstitialID: h.waiting.id, Status: model.PlaybackCancelled, Detail: "hub closed"})
	}
	for c := range h.clients {
		h.removeLocked(c)
	}
	return nil
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := context.Background()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn(ctx, "viewer read failed", logger.String("client_id", c.id), logger.Error(err))
			}
			return
		}
		var rep report
		if err := json.Unmarshal(data, &rep); err != nil {
			c.hub.logger.Debug(ctx, "malformed viewer message",
				logger.String("client_id", c.id),
				logger.Error(fmt.Errorf("%w: %w", ErrBadRequest, err)),
			)
			continue
		}
		c.hub.handleReport(ctx, c, rep)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
