package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	socket "github.com/zishang520/socket.io/clients/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"
	"go.uber.org/zap"
)

// SocketIODialer opens socket.io connections authenticated with a bearer token.
type SocketIODialer struct {
	path           string
	connectTimeout time.Duration
	logger         *zap.Logger
}

// NewSocketIODialer builds a dialer for the given socket.io path.
func NewSocketIODialer(path string, connectTimeout time.Duration, logger *zap.Logger) *SocketIODialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SocketIODialer{path: path, connectTimeout: connectTimeout, logger: logger}
}

// Dial connects and waits up to the connect timeout for the handshake. A
// slow handshake is logged, not failed; the transport keeps trying.
func (d *SocketIODialer) Dial(ctx context.Context, baseURL, token string) (Conn, error) {
	opts := socket.DefaultOptions()
	opts.SetPath(d.path)
	opts.SetTransports(types.NewSet(socket.Polling, socket.WebSocket))
	opts.SetAuth(map[string]interface{}{
		"token": token,
	})

	sock, err := socket.Connect(baseURL, opts)
	if err != nil {
		return nil, fmt.Errorf("realtime: connect %s: %w", baseURL, err)
	}

	conn := &socketConn{
		id:        uuid.NewString(),
		sock:      sock,
		connected: make(chan struct{}),
		logger:    d.logger,
	}
	conn.bind()

	timer := time.NewTimer(d.connectTimeout)
	defer timer.Stop()
	select {
	case <-conn.connected:
	case <-timer.C:
		d.logger.Warn("realtime handshake still pending", zap.String("connection_id", conn.id))
	case <-ctx.Done():
		_ = conn.Close()
		return nil, ctx.Err()
	}
	return conn, nil
}

type socketConn struct {
	id        string
	sock      *socket.Socket
	logger    *zap.Logger
	connected chan struct{}

	mu          sync.Mutex
	dead        bool
	connectOnce sync.Once
}

func (s *socketConn) bind() {
	s.sock.On(types.EventName("connect"), func(args ...any) {
		s.mu.Lock()
		s.dead = false
		s.mu.Unlock()
		s.connectOnce.Do(func() { close(s.connected) })
		s.logger.Debug("realtime connected", zap.String("connection_id", s.id), zap.String("socket_id", string(s.sock.Id())))
	})

	s.sock.On(types.EventName("disconnect"), func(args ...any) {
		s.mu.Lock()
		s.dead = true
		s.mu.Unlock()

		reason := ""
		if len(args) > 0 {
			if r, ok := args[0].(string); ok {
				reason = r
			}
		}
		s.logger.Info("realtime disconnected", zap.String("connection_id", s.id), zap.String("reason", reason))
	})

	s.sock.On(types.EventName("connect_error"), func(args ...any) {
		if len(args) > 0 {
			s.logger.Warn("realtime connection error", zap.String("connection_id", s.id), zap.Any("error", args[0]))
		}
	})
}

func (s *socketConn) ID() string {
	return s.id
}

func (s *socketConn) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.dead
}

func (s *socketConn) Close() error {
	s.mu.Lock()
	s.dead = true
	s.mu.Unlock()
	s.sock.Disconnect()
	return nil
}
