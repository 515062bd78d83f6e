package persistence

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-auth/internal/config"
)

// ErrRedisUnavailable signals that the shared connection could not be established.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ConnectionManager owns the single shared Redis client. The connection is
// established lazily on first Get; concurrent callers share one in-flight
// attempt and converge on the same client or the same error.
type ConnectionManager struct {
	cfg    config.RedisConfig
	logger *zap.Logger

	mu      sync.Mutex
	client  *redis.Client
	attempt *connAttempt
}

type connAttempt struct {
	done   chan struct{}
	client *redis.Client
	err    error
}

// NewConnectionManager builds a manager without connecting.
func NewConnectionManager(cfg config.RedisConfig, logger *zap.Logger) *ConnectionManager {
	return &ConnectionManager{cfg: cfg, logger: logger}
}

// Get returns the shared client, connecting on first use. At most one
// connection attempt is in flight; other callers wait for its outcome.
func (m *ConnectionManager) Get(ctx context.Context) (*redis.Client, error) {
	m.mu.Lock()
	if m.client != nil {
		client := m.client
		m.mu.Unlock()
		return client, nil
	}
	if m.attempt == nil {
		m.attempt = &connAttempt{done: make(chan struct{})}
		go m.connect(m.attempt)
	}
	attempt := m.attempt
	m.mu.Unlock()

	select {
	case <-attempt.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if attempt.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, attempt.err)
	}
	return attempt.client, nil
}

func (m *ConnectionManager) connect(attempt *connAttempt) {
	m.logger.Info("connecting to redis", zap.String("addr", m.cfg.Addr))

	client := redis.NewClient(&redis.Options{
		Addr:         m.cfg.Addr,
		Password:     m.cfg.Password,
		DB:           m.cfg.DB,
		DialTimeout:  m.cfg.DialTimeout,
		ReadTimeout:  m.cfg.CommandTimeout,
		WriteTimeout: m.cfg.CommandTimeout,
		MaxRetries:   m.cfg.MaxRetries,
	})
	client.AddHook(&lifecycleHook{logger: m.logger})

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		m.logger.Error("redis connection failed", zap.Error(err))
		_ = client.Close()
		attempt.err = err
	} else {
		m.logger.Info("connected to redis")
		attempt.client = client
	}

	m.mu.Lock()
	if attempt.err == nil {
		m.client = attempt.client
	}
	m.attempt = nil
	m.mu.Unlock()

	close(attempt.done)
}

// Disconnect closes the shared client. The next Get reconnects.
func (m *ConnectionManager) Disconnect() error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	m.logger.Info("redis connection closed")
	return client.Close()
}

// Ping verifies connectivity through the shared client.
func (m *ConnectionManager) Ping(ctx context.Context) error {
	client, err := m.Get(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

// lifecycleHook logs dial events so reconnects are visible in the logs.
type lifecycleHook struct {
	logger *zap.Logger
}

func (h *lifecycleHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logger.Warn("redis dial failed", zap.String("addr", addr), zap.Error(err))
			return nil, err
		}
		h.logger.Debug("redis dial ok", zap.String("addr", addr))
		return conn, nil
	}
}

func (h *lifecycleHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return next
}

func (h *lifecycleHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}
