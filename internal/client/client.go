package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/logging"
	"github.com/muurk/espmesh/internal/protocol"
	"github.com/muurk/espmesh/internal/version"
)

const (
	// DefaultTimeout bounds each dial attempt and each request
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for a failed dial
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second

	// Events buffered before new ones are dropped
	eventBufferSize = 64
)

// Client talks to an espmesh control server over WebSocket
type Client struct {
	// URL is the control endpoint (e.g., "ws://192.168.4.2:8765/ws")
	URL string

	// Timeout bounds each dial attempt and each request
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for a failed dial
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles RetryDelay after each failed attempt
	UseExponentialBackoff bool

	Dialer *websocket.Dialer

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan *protocol.Response
	closed  bool
	readErr error

	events        chan espmesh.Event
	droppedEvents int
	done          chan struct{}
}

// New creates a client for url. Call Connect before making requests.
func New(url string) *Client {
	return &Client{
		URL:                   url,
		Timeout:               DefaultTimeout,
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		Dialer:                websocket.DefaultDialer,
	}
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Connect dials the server, retrying retryable failures with backoff
func (c *Client) Connect(ctx context.Context) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug("Retrying control server connection",
				zap.String("url", c.URL),
				zap.Int("attempt", attempt),
				zap.Duration("delay", currentDelay),
			)
			select {
			case <-time.After(currentDelay):
			case <-ctx.Done():
				return NewNetworkError("connect cancelled", ctx.Err())
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := c.connectAttempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

func (c *Client) connectAttempt(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	conn, resp, err := c.Dialer.DialContext(dialCtx, c.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return NewNetworkError(fmt.Sprintf("failed to connect to %s", c.URL), err)
	}

	c.mu.Lock()
	c.conn = conn
	c.pending = make(map[int64]chan *protocol.Response)
	c.events = make(chan espmesh.Event, eventBufferSize)
	c.done = make(chan struct{})
	c.closed = false
	c.readErr = nil
	c.mu.Unlock()

	logging.LogConnection(c.URL, "connected")
	go c.readLoop(conn, c.events, c.done)
	return nil
}

// readLoop routes responses to their callers and events to Events
func (c *Client) readLoop(conn *websocket.Conn, events chan espmesh.Event, done chan struct{}) {
	var err error
	defer func() {
		c.mu.Lock()
		c.readErr = err
		c.closed = true
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
		close(events)
		close(done)
		logging.LogConnection(c.URL, "disconnected")
	}()

	for {
		var data []byte
		_, data, err = conn.ReadMessage()
		if err != nil {
			return
		}

		msg, decodeErr := protocol.DecodeServerMessage(data)
		if decodeErr != nil {
			logging.Warn("Ignoring malformed server message", zap.Error(decodeErr))
			continue
		}

		if msg.Event != nil {
			ev, evErr := espmesh.EventFromValue(msg.Event.Event)
			if evErr != nil {
				logging.Warn("Ignoring unknown event", zap.Error(evErr))
				continue
			}
			select {
			case events <- ev:
			default:
				c.mu.Lock()
				c.droppedEvents++
				c.mu.Unlock()
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.Response.ID]
		delete(c.pending, msg.Response.ID)
		c.mu.Unlock()
		if !ok {
			logging.Debug("Response for unknown request", zap.Int64("id", msg.Response.ID))
			continue
		}
		ch <- msg.Response
	}
}

// Call sends a request and waits for its response. Error responses are
// returned as *Error with Type ErrTypeRemote.
func (c *Client) Call(ctx context.Context, method string, args []any, kwargs map[string]any) (any, error) {
	req := protocol.NewRequest(method, args, kwargs)
	ch := make(chan *protocol.Response, 1)

	c.mu.Lock()
	if c.conn == nil || c.closed {
		err := c.readErr
		c.mu.Unlock()
		return nil, NewClosedError(err)
	}
	conn := c.conn
	c.pending[req.ID] = ch
	c.mu.Unlock()

	data, err := protocol.Encode(req)
	if err != nil {
		c.forget(req.ID)
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.Timeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return nil, NewClosedError(err)
	}

	timer := time.NewTimer(c.Timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, NewClosedError(c.Err())
		}
		if resp.Error != nil {
			return nil, NewRemoteError(resp.Error)
		}
		return resp.Result, nil
	case <-timer.C:
		c.forget(req.ID)
		return nil, &Error{Type: ErrTypeTimeout, Message: fmt.Sprintf("no response to %s", method)}
	case <-ctx.Done():
		c.forget(req.ID)
		return nil, ctx.Err()
	}
}

func (c *Client) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Active reports whether the remote mesh is active
func (c *Client) Active(ctx context.Context) (bool, error) {
	return c.boolCall(ctx, protocol.MethodActive, nil)
}

// SetActive activates or deactivates the remote mesh
func (c *Client) SetActive(ctx context.Context, on bool) (bool, error) {
	return c.boolCall(ctx, protocol.MethodActive, []any{on})
}

// Config applies kwargs and returns the value of key. An empty key returns
// nil.
func (c *Client) Config(ctx context.Context, key string, kwargs map[string]any) (any, error) {
	var args []any
	if key != "" {
		args = []any{key}
	}
	return c.Call(ctx, protocol.MethodConfig, args, kwargs)
}

// Subscribe turns event pushes for this connection on or off
func (c *Client) Subscribe(ctx context.Context, on bool) error {
	_, err := c.boolCall(ctx, protocol.MethodEvents, []any{on})
	return err
}

// Stats returns the remote event counters
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	result, err := c.Call(ctx, protocol.MethodStats, nil, nil)
	if err != nil {
		return nil, err
	}
	stats, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected stats result %T", result)
	}
	return stats, nil
}

func (c *Client) boolCall(ctx context.Context, method string, args []any) (bool, error) {
	result, err := c.Call(ctx, method, args, nil)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected %s result %T", method, result)
	}
	return b, nil
}

// Events returns pushed mesh events. The channel closes with the
// connection. Events that arrive while the buffer is full are dropped.
func (c *Client) Events() <-chan espmesh.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// DroppedEvents returns how many pushed events did not fit the buffer
func (c *Client) DroppedEvents() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.droppedEvents
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Err returns the read error that ended the connection, if any
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close sends a close frame and shuts the connection
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return conn.Close()
}
