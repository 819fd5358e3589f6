package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrClientClosed is returned by SubscribeLogs after Close.
var ErrClientClosed = errors.New("websocket client closed")

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// BufferSize is the capacity of the notification channel.
	BufferSize int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		BufferSize:        1024,
	}
}

// WSClientImpl implements WSClient using gorilla/websocket.
// Each subscription owns its connection and re-dials with exponential backoff.
type WSClientImpl struct {
	endpoint string
	config   WSClientConfig
	logger   *zap.Logger

	requestID atomic.Uint64
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWSClient creates a WebSocket client. Connections are opened lazily per subscription.
func NewWSClient(endpoint string, config *WSClientConfig, logger *zap.Logger) *WSClientImpl {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger.Named("ws"),
		done:     make(chan struct{}),
	}
}

// SubscribeLogs dials the endpoint, issues logsSubscribe and streams notifications.
// The first dial is synchronous so configuration errors surface to the caller.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	conn, err := c.dialAndSubscribe(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make(chan LogNotification, c.config.BufferSize)
	c.wg.Add(1)
	go c.stream(ctx, conn, filter, out)
	return out, nil
}

// Close stops all subscriptions and waits for their goroutines.
func (c *WSClientImpl) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
	c.wg.Wait()
	return nil
}

func (c *WSClientImpl) dialAndSubscribe(ctx context.Context, filter LogsFilter) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	mentionsFilter := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentionsFilter["mentions"] = filter.Mentions
	} else {
		mentionsFilter["all"] = nil
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentionsFilter,
			map[string]string{"commitment": CommitmentConfirmed},
		},
	}

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	return conn, nil
}

// stream pumps one connection into out, reconnecting until ctx is done or the client closes.
func (c *WSClientImpl) stream(ctx context.Context, conn *websocket.Conn, filter LogsFilter, out chan<- LogNotification) {
	defer c.wg.Done()
	defer close(out)

	delay := c.config.ReconnectDelay
	for {
		err := c.readConn(ctx, conn, out)
		conn.Close()

		if c.stopped(ctx) {
			return
		}
		c.logger.Warn("log subscription dropped, reconnecting", zap.Error(err), zap.Duration("delay", delay))

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-time.After(delay):
			}

			conn, err = c.dialAndSubscribe(ctx, filter)
			if err == nil {
				delay = c.config.ReconnectDelay
				c.logger.Info("log subscription restored")
				break
			}

			c.logger.Warn("reconnect failed", zap.Error(err))
			delay *= 2
			if delay > c.config.MaxReconnectDelay {
				delay = c.config.MaxReconnectDelay
			}
		}
	}
}

func (c *WSClientImpl) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}

// readConn reads until the connection fails or streaming is stopped.
func (c *WSClientImpl) readConn(ctx context.Context, conn *websocket.Conn, out chan<- LogNotification) error {
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Unblock ReadMessage on shutdown and keep the connection alive with pings.
	go func() {
		ticker := time.NewTicker(c.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-readCtx.Done():
				conn.Close()
				return
			case <-c.done:
				conn.Close()
				return
			case <-ticker.C:
				deadline := time.Now().Add(c.config.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		notif, ok := c.decode(message)
		if !ok {
			continue
		}

		select {
		case out <- notif:
		case <-readCtx.Done():
			return readCtx.Err()
		case <-c.done:
			return ErrClientClosed
		}
	}
}

// decode parses a logsNotification. Subscription acks and unrelated frames are ignored.
func (c *WSClientImpl) decode(message []byte) (LogNotification, bool) {
	var probe struct {
		ID     *uint64          `json:"id"`
		Method string           `json:"method"`
		Error  *RPCError        `json:"error"`
		Params *json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(message, &probe); err != nil {
		c.logger.Debug("unparseable frame", zap.Error(err))
		return LogNotification{}, false
	}

	if probe.Error != nil {
		c.logger.Warn("subscription error", zap.Int("code", probe.Error.Code), zap.String("message", probe.Error.Message))
		return LogNotification{}, false
	}

	if probe.Method != "logsNotification" || probe.Params == nil {
		return LogNotification{}, false
	}

	var params wsNotificationParams
	if err := json.Unmarshal(*probe.Params, &params); err != nil {
		c.logger.Debug("bad notification params", zap.Error(err))
		return LogNotification{}, false
	}

	return LogNotification{
		Signature: params.Result.Value.Signature,
		Slot:      params.Result.Context.Slot,
		Logs:      params.Result.Value.Logs,
		Err:       params.Result.Value.Err,
	}, true
}

// wsRequest represents a JSON-RPC request over WebSocket.
type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Context struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Signature string      `json:"signature"`
			Err       interface{} `json:"err"`
			Logs      []string    `json:"logs"`
		} `json:"value"`
	} `json:"result"`
}

// Ensure WSClientImpl implements WSClient
var _ WSClient = (*WSClientImpl)(nil)
