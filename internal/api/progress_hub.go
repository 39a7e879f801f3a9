package api

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"gozunis/domain/run"
)

// allRuns is the topic that receives the events of every run
const allRuns = "*"

// ProgressClient is one connected SSE subscriber
type ProgressClient struct {
	Topic   string
	Channel chan run.ProgressEvent
}

// ProgressHub fans run progress events out to Server-Sent Events subscribers.
// Subscribers listen to a single run or to every run.
type ProgressHub struct {
	clients    map[string]map[chan run.ProgressEvent]bool
	clientsMu  sync.RWMutex
	register   chan ProgressClient
	unregister chan ProgressClient
	broadcast  chan run.ProgressEvent
	done       chan struct{}
	closeOnce  sync.Once
	keepAlive  time.Duration
}

// NewProgressHub creates a hub and starts its dispatch loop
func NewProgressHub() *ProgressHub {
	hub := &ProgressHub{
		clients:    make(map[string]map[chan run.ProgressEvent]bool),
		register:   make(chan ProgressClient, 10),
		unregister: make(chan ProgressClient, 10),
		broadcast:  make(chan run.ProgressEvent, 100),
		done:       make(chan struct{}),
		keepAlive:  30 * time.Second,
	}

	go hub.run()
	return hub
}

// Close stops the dispatch loop. Subscribing to a closed hub yields a closed channel.
func (h *ProgressHub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *ProgressHub) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *ProgressHub) run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			if h.clients[client.Topic] == nil {
				h.clients[client.Topic] = make(map[chan run.ProgressEvent]bool)
			}
			h.clients[client.Topic][client.Channel] = true
			log.Printf("[SSE] Client subscribed to %s (total clients: %d)", client.Topic, len(h.clients[client.Topic]))
			h.clientsMu.Unlock()

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if clients, exists := h.clients[client.Topic]; exists {
				delete(clients, client.Channel)
				close(client.Channel)
				if len(clients) == 0 {
					delete(h.clients, client.Topic)
				}
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for _, topic := range []string{event.RunID.String(), allRuns} {
				for clientChan := range h.clients[topic] {
					select {
					case clientChan <- event:
					default:
						log.Printf("[SSE] Client channel full for %s, skipping event", topic)
					}
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Publish queues an event for delivery; it drops the event when the hub is saturated
func (h *ProgressHub) Publish(event run.ProgressEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[SSE] Broadcast channel full, dropping %s event of run %s", event.Kind, event.RunID)
	}
}

// Subscribe registers a client channel for topic (a run ID, or empty for all runs)
func (h *ProgressHub) Subscribe(topic string) (chan run.ProgressEvent, func()) {
	if topic == "" {
		topic = allRuns
	}
	ch := make(chan run.ProgressEvent, 10)
	if h.closed() {
		close(ch)
		return ch, func() {}
	}
	select {
	case h.register <- ProgressClient{Topic: topic, Channel: ch}:
	case <-h.done:
		close(ch)
		return ch, func() {}
	}
	return ch, func() {
		if h.closed() {
			return
		}
		select {
		case h.unregister <- ProgressClient{Topic: topic, Channel: ch}:
		case <-h.done:
		}
	}
}

// ClientCount returns the number of subscribers of topic
func (h *ProgressHub) ClientCount(topic string) int {
	if topic == "" {
		topic = allRuns
	}
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients[topic])
}

// HandleSSE streams progress events; ?run_id= restricts the stream to one run
func (h *ProgressHub) HandleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events, unsubscribe := h.Subscribe(c.Query("run_id"))
	defer unsubscribe()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("[SSE] Failed to marshal event: %v", err)
				return true
			}
			c.SSEvent(string(event.Kind), string(payload))
			return true

		case <-time.After(h.keepAlive):
			c.SSEvent("ping", `{"status":"alive"}`)
			return true

		case <-ctx.Done():
			return false
		}
	})
}
