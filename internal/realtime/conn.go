package realtime

import "context"

// Conn is one bidirectional message connection.
type Conn interface {
	// ID identifies the connection for logs and events.
	ID() string
	// Alive reports whether the connection is up or still establishing.
	// It turns false once the transport reports a disconnect or Close is called.
	Alive() bool
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, baseURL, token string) (Conn, error)
}
