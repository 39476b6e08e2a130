package handlers

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/remixlab/remixd/internal/interfaces"
)

// Client wraps one websocket connection with a write mutex so concurrent
// broadcasts never interleave frames on the same socket.
type Client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

// ID returns the handle assigned at connect time.
func (c *Client) ID() string {
	return c.id
}

// SendJSON writes one message to this client. Safe for concurrent use.
func (c *Client) SendJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// ConnectionRegistry tracks the active client set. It owns the sockets; the
// orchestration core only holds Connection references into it.
type ConnectionRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  arbor.ILogger
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry(logger arbor.ILogger) *ConnectionRegistry {
	return &ConnectionRegistry{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Connect registers an upgraded websocket connection and returns its handle.
func (r *ConnectionRegistry) Connect(conn *websocket.Conn) *Client {
	client := &Client{id: uuid.New().String(), conn: conn}

	r.mu.Lock()
	r.clients[client.id] = client
	count := len(r.clients)
	r.mu.Unlock()

	r.logger.Debug().Str("client_id", client.id).Int("total", count).Msg("WebSocket client connected")
	return client
}

// Disconnect removes the client from the active set and closes its socket.
func (r *ConnectionRegistry) Disconnect(client *Client) {
	r.mu.Lock()
	delete(r.clients, client.id)
	count := len(r.clients)
	r.mu.Unlock()

	client.conn.Close()
	r.logger.Debug().Str("client_id", client.id).Int("remaining", count).Msg("WebSocket client disconnected")
}

// Count returns the number of active clients.
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast delivers one message to exactly the given connections,
// concurrently and best-effort: a failed write to one client never blocks or
// fails delivery to the others. It returns once every delivery attempt has
// finished, which is what lets the caller serialize broadcasts.
func (r *ConnectionRegistry) Broadcast(conns []interfaces.Connection, v interface{}) {
	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(c interfaces.Connection) {
			defer wg.Done()
			if err := c.SendJSON(v); err != nil {
				r.logger.Warn().Err(err).Str("client_id", c.ID()).Msg("Failed to send message to client")
			}
		}(conn)
	}
	wg.Wait()
}

// CloseAll disconnects every client, used during shutdown.
func (r *ConnectionRegistry) CloseAll() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.clients = make(map[string]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}
