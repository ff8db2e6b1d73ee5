package feed

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-board/pkg/boarddto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type State int8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

type EventCallback func(ev boarddto.FeedEvent)

type StateCallback func(state State)

type eventEntry struct {
	id       int
	callback EventCallback
}

type stateEntry struct {
	id       int
	callback StateCallback
}

type Option func(*Client)

// WithReconnect sets how many times a dropped feed is redialled. Zero
// disables reconnection.
func WithReconnect(maxAttempts int) Option {
	return func(c *Client) { c.maxReconnectAttempts = maxAttempts }
}

func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client follows one game's feed and redials with backoff when the
// connection drops. Every (re)connect starts with a snapshot event, so a
// subscriber that refreshes on each event converges after a gap.
type Client struct {
	wsURL string

	conn  *websocket.Conn
	connM sync.Mutex

	state  State
	stateM sync.RWMutex

	eventCbs []eventEntry
	stateCbs []stateEntry
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	logger *zap.Logger
}

func NewClient(wsURL string, opts ...Option) *Client {
	c := &Client{
		wsURL:                wsURL,
		state:                StateDisconnected,
		maxReconnectAttempts: 5,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		logger:               zap.NewNop(),
	}
	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL derives the feed endpoint of gameID from the authority base URL.
func URL(baseURL, gameID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path += "/games/" + url.PathEscape(strings.TrimSpace(gameID)) + "/feed"
	return u.String(), nil
}

func (c *Client) Connect(ctx context.Context) error {
	c.stateM.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.stateM.Unlock()
		return nil
	}
	c.stateM.Unlock()

	c.setState(StateConnecting)
	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateFailed)
		c.scheduleReconnect()
		return err
	}
	c.attach(conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	return conn, err
}

func (c *Client) attach(conn *websocket.Conn) {
	c.connM.Lock()
	c.conn = conn
	c.connM.Unlock()
	c.setState(StateConnected)
	c.logger.Info("feed_connected", zap.String("url", c.wsURL))

	c.wg.Add(2)
	go c.listen(conn)
	go c.pingLoop(conn)
}

func (c *Client) listen(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var ev boarddto.FeedEvent
		if err := wsjson.Read(c.rootCtx, conn, &ev); err != nil {
			if c.isStopping() {
				return
			}
			c.logger.Warn("feed_read_error", zap.Error(err))
			c.setState(StateDisconnected)
			c.closeConn(conn, websocket.StatusGoingAway, "reconnect")
			c.scheduleReconnect()
			return
		}

		c.cbM.RLock()
		callbacks := make([]eventEntry, len(c.eventCbs))
		copy(callbacks, c.eventCbs)
		c.cbM.RUnlock()
		for _, entry := range callbacks {
			entry.callback(ev)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.rootCtx.Done():
			return
		case <-t.C:
			if !c.current(conn) {
				return
			}
			ctx, cancel := context.WithTimeout(c.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				// Closing the conn ends listen, which schedules the redial.
				c.closeConn(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (c *Client) scheduleReconnect() {
	if c.maxReconnectAttempts <= 0 || c.isStopping() {
		return
	}
	c.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
			select {
			case <-c.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			conn, err := c.dial(c.rootCtx)
			if err != nil {
				c.logger.Debug("feed_redial_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			if c.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			c.attach(conn)
			return
		}
		c.setState(StateFailed)
	}()
}

// OnEvent registers cb for every feed event and returns an ID for removal.
func (c *Client) OnEvent(cb EventCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextCbID++
	c.eventCbs = append(c.eventCbs, eventEntry{id: c.nextCbID, callback: cb})
	return c.nextCbID
}

func (c *Client) RemoveEventCallback(id int) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	for i, cb := range c.eventCbs {
		if cb.id == id {
			c.eventCbs = append(c.eventCbs[:i], c.eventCbs[i+1:]...)
			break
		}
	}
}

func (c *Client) OnStateChange(cb StateCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextCbID++
	c.stateCbs = append(c.stateCbs, stateEntry{id: c.nextCbID, callback: cb})
	return c.nextCbID
}

func (c *Client) State() State {
	c.stateM.RLock()
	defer c.stateM.RUnlock()
	return c.state
}

func (c *Client) setState(state State) {
	c.stateM.Lock()
	c.state = state
	c.stateM.Unlock()

	c.cbM.RLock()
	callbacks := make([]stateEntry, len(c.stateCbs))
	copy(callbacks, c.stateCbs)
	c.cbM.RUnlock()
	for _, entry := range callbacks {
		entry.callback(state)
	}
}

func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.connM.Lock()
	conn := c.conn
	c.connM.Unlock()
	if conn != nil {
		c.closeConn(conn, websocket.StatusNormalClosure, "close")
	}
	c.rootCancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		c.setState(StateClosed)
		return nil
	}
}

func (c *Client) current(conn *websocket.Conn) bool {
	c.connM.Lock()
	defer c.connM.Unlock()
	return c.conn == conn
}

func (c *Client) closeConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	c.connM.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.connM.Unlock()
	_ = conn.Close(code, reason)
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 200 * time.Millisecond
}
