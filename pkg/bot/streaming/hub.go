// Package streaming provides real-time WebSocket streaming of bot
// events to dashboard clients.
package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// EventType represents the type of streaming event.
type EventType string

const (
	EventTypePlan      EventType = "plan"
	EventTypeTrigger   EventType = "trigger"
	EventTypeLive      EventType = "live"
	EventTypeAnalysis  EventType = "analysis"
	EventTypeStatus    EventType = "status"
	EventTypeError     EventType = "error"
	EventTypeHeartbeat EventType = "heartbeat"
)

var allEventTypes = []EventType{
	EventTypePlan, EventTypeTrigger, EventTypeLive, EventTypeAnalysis,
	EventTypeStatus, EventTypeError, EventTypeHeartbeat,
}

// Event is a streaming event sent to clients.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

const (
	heartbeatEvery = 30 * time.Second
	pingEvery      = 54 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	readLimit      = 512
	outboxSize     = 256
)

// Hub fans bot events out to every connected dashboard client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	events   chan Event
	upgrader websocket.Upgrader
}

// Client is one WebSocket subscriber.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	outbox chan []byte

	mu     sync.RWMutex
	topics map[EventType]bool
}

// NewHub creates a new streaming hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		events:  make(chan Event, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboard runs anywhere
			},
		},
	}
}

// Run drains the event queue until the context is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case event := <-h.events:
			h.fanOut(event)
		case <-heartbeat.C:
			h.Broadcast(Event{
				Type: EventTypeHeartbeat,
				Data: map[string]interface{}{"clients": h.ClientCount()},
			})
		}
	}
}

func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	log.Debug().Int("clients", n).Msg("ws client connected")
}

func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.outbox)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		log.Debug().Int("clients", n).Msg("ws client disconnected")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.outbox)
	}
	h.mu.Unlock()
}

// fanOut serializes the event once and hands it to every subscribed
// client. A client that cannot keep up is dropped rather than allowed
// to stall the pipeline.
func (h *Hub) fanOut(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Msg("ws marshal failed")
		return
	}

	var stale []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !c.wants(event.Type) {
			continue
		}
		select {
		case c.outbox <- payload:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.detach(c)
	}
}

// Broadcast queues an event for delivery to all connected clients.
func (h *Hub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.events <- event:
	default:
		log.Warn().Str("type", string(event.Type)).Msg("ws event queue full, dropping event")
	}
}

// BroadcastPlan broadcasts a new trading plan.
func (h *Hub) BroadcastPlan(plan interface{}) {
	h.Broadcast(Event{Type: EventTypePlan, Data: plan})
}

// BroadcastTrigger broadcasts a fired trigger.
func (h *Hub) BroadcastTrigger(trigger interface{}) {
	h.Broadcast(Event{Type: EventTypeTrigger, Data: trigger})
}

// BroadcastLive broadcasts a live half-time recommendation.
func (h *Hub) BroadcastLive(plan interface{}) {
	h.Broadcast(Event{Type: EventTypeLive, Data: plan})
}

// BroadcastAnalysis broadcasts a refreshed team analysis.
func (h *Hub) BroadcastAnalysis(analysis interface{}) {
	h.Broadcast(Event{Type: EventTypeAnalysis, Data: analysis})
}

// BroadcastStatus broadcasts a status update.
func (h *Hub) BroadcastStatus(status interface{}) {
	h.Broadcast(Event{Type: EventTypeStatus, Data: status})
}

// BroadcastError broadcasts an error event.
func (h *Hub) BroadcastError(err error, context string) {
	h.Broadcast(Event{
		Type: EventTypeError,
		Data: map[string]interface{}{
			"error":   err.Error(),
			"context": context,
		},
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS handles WebSocket upgrade requests. New clients start
// subscribed to every event type and narrow from there.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		topics: make(map[EventType]bool, len(allEventTypes)),
	}
	for _, t := range allEventTypes {
		client.topics[t] = true
	}

	h.attach(client)
	go client.writeLoop()
	go client.readLoop()
}

func (c *Client) wants(t EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics[t]
}

func (c *Client) setTopics(events []string, subscribed bool) {
	c.mu.Lock()
	for _, e := range events {
		if subscribed {
			c.topics[EventType(e)] = true
		} else {
			delete(c.topics, EventType(e))
		}
	}
	c.mu.Unlock()
}

// readLoop consumes subscription changes from the client and detaches
// it when the connection drops.
func (c *Client) readLoop() {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("ws read error")
			}
			return
		}

		var msg struct {
			Action string   `json:"action"`
			Events []string `json:"events"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Action {
		case "subscribe":
			c.setTopics(msg.Events, true)
		case "unsubscribe":
			c.setTopics(msg.Events, false)
		}
	}
}

// writeLoop flushes the outbox one frame at a time and keeps the
// connection alive with pings. A closed outbox means the hub dropped
// the client.
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.outbox:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
