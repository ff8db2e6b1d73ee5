package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-board/internal/position"
	"github.com/park285/cheese-board/pkg/boarddto"
	"github.com/valyala/fasthttp"
)

// StatusError is returned for any non-2xx response. Domain is filled when the
// body carried a boarddto.ErrorResponse.
type StatusError struct {
	Status int
	Body   string
	Domain *boarddto.DomainError
}

func (e *StatusError) Error() string {
	if e.Domain != nil {
		return fmt.Sprintf("authority error: status=%d code=%s: %s", e.Status, e.Domain.Code, e.Domain.Error())
	}
	return fmt.Sprintf("authority error: status=%d body=%s", e.Status, truncate(e.Body, 512))
}

// IsNotFound reports whether err is a 404 from the authority.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == fasthttp.StatusNotFound
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

// WithRetry sets the attempt count for idempotent calls.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateGame(ctx context.Context, start string) (*boarddto.GameState, error) {
	var st boarddto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/games", boarddto.CreateGameRequest{Start: start}, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Game(ctx context.Context, gameID string) (*boarddto.GameState, error) {
	var st boarddto.GameState
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(gameID, ""), nil, &st, true); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Position(ctx context.Context, gameID string) (*boarddto.PositionResponse, error) {
	var pos boarddto.PositionResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(gameID, "/position"), nil, &pos, true); err != nil {
		return nil, err
	}
	return &pos, nil
}

// Move proposes from->to. It is never retried: a lost response may still
// have applied the move.
func (c *Client) Move(ctx context.Context, gameID string, from, to position.Square) (*boarddto.MoveResponse, error) {
	req := boarddto.MoveRequest{From: from.String(), To: to.String()}
	var resp boarddto.MoveResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(gameID, "/moves"), req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BoardPNG fetches the rendered board image.
func (c *Client) BoardPNG(ctx context.Context, gameID string, flip bool) ([]byte, error) {
	path := gamePath(gameID, "/board.png")
	if flip {
		path += "?flip=1"
	}
	status, body, err := c.roundTrip(ctx, fasthttp.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, statusError(status, body)
	}
	return body, nil
}

// Seat binds the client to one game so it can serve as a board's move
// validator.
func (c *Client) Seat(gameID string) *Seat { return &Seat{c: c, gameID: gameID} }

type Seat struct {
	c      *Client
	gameID string
}

func (s *Seat) Position(ctx context.Context) (string, error) {
	pos, err := s.c.Position(ctx, s.gameID)
	if err != nil {
		return "", err
	}
	return pos.Placement, nil
}

// ValidateAndApply maps any non-accepted verdict, conflicts included, to
// (false, nil). Transport and status failures are errors.
func (s *Seat) ValidateAndApply(ctx context.Context, from, to position.Square) (bool, error) {
	resp, err := s.c.Move(ctx, s.gameID, from, to)
	if err != nil {
		return false, err
	}
	return resp.Accepted, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		status, body, err := c.roundTrip(ctx, method, url, payload)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if status < 200 || status >= 300 {
			err := statusError(status, body)
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

type roundTripResult struct {
	status int
	body   []byte
	err    error
}

// roundTrip runs one request. fasthttp only honours deadlines, so the call
// runs on its own goroutine and is abandoned when ctx is cancelled; the
// goroutine owns and releases the request and response.
func (c *Client) roundTrip(ctx context.Context, method, url string, payload []byte) (int, []byte, error) {
	deadline := c.computeDeadline(ctx)
	done := make(chan roundTripResult, 1)
	go func() {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer func() {
			fasthttp.ReleaseRequest(req)
			fasthttp.ReleaseResponse(resp)
		}()
		req.Header.SetMethod(method)
		req.SetRequestURI(url)
		req.Header.SetContentType("application/json")
		if payload != nil {
			req.SetBody(payload)
		}
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			done <- roundTripResult{err: err}
			return
		}
		done <- roundTripResult{status: resp.StatusCode(), body: append([]byte(nil), resp.Body()...)}
	}()

	select {
	case r := <-done:
		return r.status, r.body, r.err
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func statusError(status int, body []byte) *StatusError {
	se := &StatusError{Status: status, Body: string(body)}
	var er boarddto.ErrorResponse
	if json.Unmarshal(body, &er) == nil && er.Error.Code != "" {
		se.Domain = &er.Error
	}
	return se
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func gamePath(gameID, suffix string) string {
	return "/games/" + strings.TrimSpace(gameID) + suffix
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
