package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/site"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveSendBuffer = 8
	liveReadLimit  = 512
)

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

// liveHub pushes the public site document to websocket clients after every store transition.
// A client whose buffer is full is dropped rather than slowing the store down.
type liveHub struct {
	store    *site.Store
	logger   core.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	clients     map[*liveClient]struct{}
	closed      bool
	unsubscribe func()
}

func newLiveHub(store *site.Store, conf *core.Config, logger core.Logger) *liveHub {
	h := &liveHub{
		store:   store,
		logger:  logger,
		clients: make(map[*liveClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get(echo.HeaderOrigin)
			return origin == "" || conf.Debug || strings.EqualFold(origin, conf.FrontendBaseURL)
		},
	}
	h.unsubscribe = store.Subscribe(h.broadcast)
	return h
}

func encodePublic(sc site.SiteContent) ([]byte, error) {
	return json.Marshal(sc.Public())
}

// broadcast runs under the store lock.
func (h *liveHub) broadcast(state site.State) {
	msg, err := encodePublic(state.Data)
	if err != nil {
		h.logger.Error(fmt.Sprintf("echoapi.liveHub.broadcast: %v", err), err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropLocked(c)
		}
	}
}

func (h *liveHub) add(c *liveClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *liveHub) remove(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *liveHub) dropLocked(c *liveClient) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Len returns the number of connected clients.
func (h *liveHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client & stops listening to the store.
func (h *liveHub) Close() {
	h.unsubscribe()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *liveHub) serve(ctx echo.Context) error {
	conn, err := h.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied
		return nil
	}

	c := &liveClient{conn: conn, send: make(chan []byte, liveSendBuffer)}

	// queue the current document & register the client before any further transition
	var added bool
	h.store.View(func(state site.State) {
		msg, encErr := encodePublic(state.Data)
		if encErr != nil {
			err = encErr
			return
		}
		c.send <- msg
		added = h.add(c)
	})
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "encoding site")
	}
	if !added {
		_ = conn.Close()
		return nil
	}

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// readPump discards client messages and keeps the connection alive until it fails.
func (h *liveHub) readPump(c *liveClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(liveReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *liveHub) writePump(c *liveClient) {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
