package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Channel owns at most one live connection for a browsing session. A new
// connection is dialed only when none exists or the current one is dead.
type Channel struct {
	mu      sync.Mutex
	conn    Conn
	dialer  Dialer
	baseURL string
	tokens  TokenSource
	logger  *zap.Logger

	onOpen  func(Conn)
	onClose func(Conn)
}

// ChannelOption customizes a Channel.
type ChannelOption func(*Channel)

// WithHooks registers callbacks fired after a connection is opened or released.
func WithHooks(onOpen, onClose func(Conn)) ChannelOption {
	return func(c *Channel) {
		c.onOpen = onOpen
		c.onClose = onClose
	}
}

// NewChannel constructs an empty channel.
func NewChannel(dialer Dialer, baseURL string, tokens TokenSource, logger *zap.Logger, opts ...ChannelOption) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Channel{dialer: dialer, baseURL: baseURL, tokens: tokens, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCreate returns the live connection, dialing a new one if needed.
func (c *Channel) GetOrCreate(ctx context.Context) (Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if c.conn.Alive() {
			return c.conn, nil
		}
		c.releaseLocked()
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := c.dialer.Dial(ctx, c.baseURL, token)
	if err != nil {
		c.logger.Warn("realtime dial failed", zap.String("base_url", c.baseURL), zap.Error(err))
		return nil, err
	}
	c.conn = conn
	c.logger.Info("realtime channel opened", zap.String("connection_id", conn.ID()))
	if c.onOpen != nil {
		c.onOpen(conn)
	}
	return conn, nil
}

// Current returns the held connection without dialing.
func (c *Channel) Current() (Conn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, c.conn != nil
}

// Disconnect tears down the connection so the next GetOrCreate starts
// fresh. It reports whether a connection was held.
func (c *Channel) Disconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return false
	}
	c.releaseLocked()
	return true
}

func (c *Channel) releaseLocked() {
	conn := c.conn
	c.conn = nil
	if err := conn.Close(); err != nil {
		c.logger.Warn("realtime close failed", zap.String("connection_id", conn.ID()), zap.Error(err))
	}
	if c.onClose != nil {
		c.onClose(conn)
	}
}
