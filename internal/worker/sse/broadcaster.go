// Package sse provides Server-Sent Events broadcasting of idea changes to dashboard clients.
package sse

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// WriteTimeout bounds a single write so a stale client cannot block a broadcast.
	WriteTimeout = 2 * time.Second

	// HeartbeatInterval is how often an idle stream receives a keep-alive comment.
	HeartbeatInterval = 30 * time.Second
)

// ErrClientClosed is returned by writes to a client whose stream has ended.
var ErrClientClosed = errors.New("sse: client closed")

// Typed is implemented by payloads that carry their own SSE event name.
type Typed interface {
	EventType() string
}

// Client represents a connected SSE client.
type Client struct {
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	ID      string

	writeMu   sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// signal marks the client as done without waiting for an in-flight write.
func (c *Client) signal() {
	c.closeOnce.Do(func() { close(c.Done) })
}

// close signals the client and waits for an in-flight write to finish.
// No write reaches the ResponseWriter after close returns.
func (c *Client) close() {
	c.signal()
	c.writeMu.Lock()
	c.closed = true
	c.writeMu.Unlock()
}

func (c *Client) write(message string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case <-c.Done:
		return ErrClientClosed
	default:
	}
	if _, err := c.Writer.Write([]byte(message)); err != nil {
		return err
	}
	c.Flusher.Flush()
	return nil
}

// Broadcaster manages SSE client connections and message broadcasting.
type Broadcaster struct {
	clients   map[string]*Client
	mu        sync.RWMutex
	heartbeat time.Duration
	closed    chan struct{}
	closeOnce sync.Once
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients:   make(map[string]*Client),
		heartbeat: HeartbeatInterval,
		closed:    make(chan struct{}),
	}
}

// AddClient registers a new SSE client connection.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	client := &Client{
		ID:      uuid.NewString(),
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}

	b.mu.Lock()
	b.clients[client.ID] = client
	clientCount := len(b.clients)
	b.mu.Unlock()

	log.Debug().
		Str("clientId", client.ID).
		Int("totalClients", clientCount).
		Msg("SSE client connected")

	return client, nil
}

// RemoveClient removes a client connection. Removing twice is harmless.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	delete(b.clients, client.ID)
	clientCount := len(b.clients)
	b.mu.Unlock()

	client.signal()

	log.Debug().
		Str("clientId", client.ID).
		Int("totalClients", clientCount).
		Msg("SSE client disconnected")
}

// Broadcast sends data as JSON to all connected clients.
// Payloads implementing Typed are sent as named events.
func (b *Broadcaster) Broadcast(data interface{}) {
	message, err := formatEvent(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE data")
		return
	}
	b.send(message)
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every client. Open HandleSSE calls return.
func (b *Broadcaster) Close() {
	b.closeOnce.Do(func() { close(b.closed) })

	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[string]*Client)
	b.mu.Unlock()

	for _, c := range clients {
		c.signal()
	}
}

// HandleSSE serves an event stream until the request ends or the broadcaster closes.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client, err := b.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// The writer belongs to this handler; wait out any broadcast still writing to it.
	defer client.close()
	defer b.RemoveClient(client)

	hello, _ := formatEvent(connected{Type: "connected", ClientID: client.ID})
	if err := client.write(hello); err != nil {
		return
	}

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.Done:
			return
		case <-b.closed:
			return
		case <-ticker.C:
			if err := client.write(": ping\n\n"); err != nil {
				return
			}
		}
	}
}

type connected struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

func (c connected) EventType() string { return c.Type }

func formatEvent(data interface{}) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	if t, ok := data.(Typed); ok && t.EventType() != "" {
		return fmt.Sprintf("event: %s\ndata: %s\n\n", t.EventType(), payload), nil
	}
	return fmt.Sprintf("data: %s\n\n", payload), nil
}

func (b *Broadcaster) send(message string) {
	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, client := range b.clients {
		clients = append(clients, client)
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	deadClientsCh := make(chan *Client, len(clients))
	var wg sync.WaitGroup

	for _, client := range clients {
		select {
		case <-client.Done:
			continue
		default:
		}
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if !b.writeToClient(c, message) {
				deadClientsCh <- c
			}
		}(client)
	}

	wg.Wait()
	close(deadClientsCh)

	for c := range deadClientsCh {
		log.Debug().Str("clientId", c.ID).Msg("Dropping dead SSE client")
		b.RemoveClient(c)
	}
}

// writeToClient reports whether the client is still usable.
func (b *Broadcaster) writeToClient(client *Client, message string) bool {
	done := make(chan error, 1)
	go func() { done <- client.write(message) }()

	select {
	case err := <-done:
		if err != nil {
			log.Debug().Str("clientId", client.ID).Err(err).Msg("Failed to write to SSE client")
			return false
		}
		return true
	case <-time.After(WriteTimeout):
		log.Warn().
			Str("clientId", client.ID).
			Dur("timeout", WriteTimeout).
			Msg("SSE write timed out")
		return false
	case <-client.Done:
		return true
	}
}
