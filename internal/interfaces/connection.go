package interfaces

// Connection is a handle to one connected client. The transport layer owns
// the underlying socket; the orchestration core only holds references and
// writes through SendJSON.
type Connection interface {
	// ID returns a stable handle assigned at connect time.
	ID() string

	// SendJSON writes one message to this client. Safe for concurrent use.
	SendJSON(v interface{}) error
}

// Broadcaster delivers a message to an explicit set of connections,
// best-effort: one failed delivery never blocks or fails the others.
type Broadcaster interface {
	Broadcast(conns []Connection, v interface{})
}
