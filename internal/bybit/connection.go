package bybit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bybit-ticker-bot/internal/interfaces"
	"bybit-ticker-bot/internal/logger"
	"bybit-ticker-bot/internal/types"

	"github.com/gorilla/websocket"
)

type State int

const (
	StateConnecting State = iota
	StateSubscribing
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateSubscribing:
		return "SUBSCRIBING"
	case StateStreaming:
		return "STREAMING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type event int

const (
	eventConnected event = iota
	eventAcked
	eventData
	eventClosed
)

// transitions lists every legal move. Events missing from a state's row are
// rejected by fire and the frame that caused them is discarded.
var transitions = map[State]map[event]State{
	StateConnecting: {
		eventConnected: StateSubscribing,
		eventClosed:    StateClosed,
	},
	StateSubscribing: {
		eventAcked:  StateStreaming,
		eventClosed: StateClosed,
	},
	StateStreaming: {
		eventAcked:  StateStreaming,
		eventData:   StateStreaming,
		eventClosed: StateClosed,
	},
}

const writeTimeout = 10 * time.Second

// ConnectionOptions configures every connection built by a factory.
type ConnectionOptions struct {
	URL string
	// PingInterval of zero disables heartbeats.
	PingInterval time.Duration
	Dialer       *websocket.Dialer
}

// Connection streams tickers for one batch over its own websocket.
type Connection struct {
	batch   types.Batch
	members map[string]struct{}
	sink    interfaces.StreamSink
	opts    ConnectionOptions

	mu      sync.Mutex // guards state, conn, closing
	state   State
	conn    *websocket.Conn
	closing bool

	writeMu   sync.Mutex
	closeOnce sync.Once
	runOnce   sync.Once
}

var _ interfaces.StreamConnection = (*Connection)(nil)

// NewConnection builds a connection in StateConnecting. Nothing is dialed until Run.
func NewConnection(batch types.Batch, sink interfaces.StreamSink, opts ConnectionOptions) *Connection {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	members := make(map[string]struct{}, len(batch.Symbols))
	for _, s := range batch.Symbols {
		members[s] = struct{}{}
	}
	return &Connection{
		batch:   batch,
		members: members,
		sink:    sink,
		opts:    opts,
		state:   StateConnecting,
	}
}

// NewFactory returns a StreamFactory producing Connections with opts.
func NewFactory(opts ConnectionOptions) interfaces.StreamFactory {
	return func(batch types.Batch, sink interfaces.StreamSink) interfaces.StreamConnection {
		return NewConnection(batch, sink, opts)
	}
}

// State returns the current connection state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run dials, subscribes and reads until the socket closes or ctx is done.
// It always ends in StateClosed with exactly one Detach. A second call is a no-op.
func (c *Connection) Run(ctx context.Context) {
	c.runOnce.Do(func() { c.run(ctx) })
}

func (c *Connection) run(ctx context.Context) {
	defer c.finish(ctx)

	conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		if ctx.Err() == nil && !c.isClosing() {
			c.fault(ctx, fmt.Errorf("dial %s: %w", c.opts.URL, err))
		}
		return
	}

	c.mu.Lock()
	c.conn = conn
	closing := c.closing
	c.mu.Unlock()
	if closing {
		_ = conn.Close()
		return
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, c.Close)
	defer stop()

	c.fire(ctx, eventConnected)
	if err := c.write(subscribeFrame(c.batch.Symbols)); err != nil {
		c.fault(ctx, fmt.Errorf("send subscribe: %w", err))
		return
	}

	pingDone := make(chan struct{})
	defer close(pingDone)
	if c.opts.PingInterval > 0 {
		go c.heartbeat(ctx, pingDone)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !c.isClosing() {
				c.fault(ctx, fmt.Errorf("read: %w", err))
			}
			return
		}
		c.handle(ctx, raw)
	}
}

func (c *Connection) handle(ctx context.Context, raw []byte) {
	frame, kind := classify(raw)

	switch kind {
	case frameHeartbeat:
		return
	case frameAck:
		if c.fire(ctx, eventAcked) {
			c.sink.Acknowledge(c.batch.ID)
		}
	case frameData:
		snaps, dropped, err := tickers(frame)
		if err != nil {
			c.sink.Discard("malformed_data")
			return
		}
		if !c.fire(ctx, eventData) {
			c.sink.Discard("unexpected_data")
			return
		}
		for i := 0; i < dropped; i++ {
			c.sink.Discard("missing_symbol")
		}
		for _, s := range snaps {
			if _, ok := c.members[s.Symbol]; !ok {
				c.sink.Discard("foreign_symbol")
				continue
			}
			c.sink.Upsert(s)
		}
	case frameRejected:
		logger.Warn(ctx, "Subscribe rejected by venue",
			"batch_id", c.batch.ID,
			"ret_msg", frame.RetMsg)
		c.sink.Discard(kind.String())
	default:
		c.sink.Discard(kind.String())
	}
}

// fire applies ev to the transition table and reports whether it was legal.
func (c *Connection) fire(ctx context.Context, ev event) bool {
	c.mu.Lock()
	from := c.state
	to, ok := transitions[from][ev]
	if ok {
		c.state = to
	}
	c.mu.Unlock()

	if ok && from != to {
		logger.Transition(ctx, c.batch.ID, from.String(), to.String(),
			"symbols", len(c.batch.Symbols))
	}
	return ok
}

func (c *Connection) finish(ctx context.Context) {
	c.fire(ctx, eventClosed)
	c.sink.Detach(c.batch.ID)
}

func (c *Connection) fault(ctx context.Context, err error) {
	logger.Warn(ctx, "Stream connection fault",
		"batch_id", c.batch.ID,
		"error", err)
	c.sink.Fault(c.batch.ID, err)
}

func (c *Connection) heartbeat(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.write(pingFrame()); err != nil {
				if !c.isClosing() {
					logger.Debug(ctx, "Heartbeat write failed", "batch_id", c.batch.ID, "error", err)
				}
				return
			}
		}
	}
}

var errNotConnected = errors.New("connection not established")

func (c *Connection) write(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

func (c *Connection) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

// Close stops the connection. Safe to call before Run, during Run and more
// than once; Run observes it and performs the Detach.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
}
