package interaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/park285/cheese-board/internal/boardview"
	"github.com/park285/cheese-board/internal/position"
	"go.uber.org/zap"
)

var (
	ErrBusy       = errors.New("move resolution in progress")
	ErrNotLoaded  = errors.New("board position not loaded")
	ErrNoOccupant = errors.New("no occupant under pointer")
)

// Authority owns the real game state. The controller never mutates the view
// after startup unless ValidateAndApply accepted the move.
type Authority interface {
	Position(ctx context.Context) (string, error)
	ValidateAndApply(ctx context.Context, from, to position.Square) (bool, error)
}

// ValidationError wraps a transport or authority failure so callers can tell
// it apart from a legality rejection.
type ValidationError struct {
	Move position.Move
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate move %s: %v", e.Move, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type State int8

const (
	Idle State = iota
	Dragging
	Resolving
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resolving:
		return "resolving"
	default:
		return "idle"
	}
}

type Outcome int8

const (
	// OutcomeIgnored: the drop never reached the authority.
	OutcomeIgnored Outcome = iota
	OutcomeAccepted
	OutcomeRejected
	OutcomeFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "ignored"
	}
}

// Resolution is the result of one drop. Stale is set when the view may lag
// the authority and the shell should call Resync.
type Resolution struct {
	Move    position.Move
	Outcome Outcome
	Err     error
	Stale   bool
}

type Option func(*Controller)

// WithValidateTimeout bounds each validation call. Zero means no timeout.
func WithValidateTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithResolveHook is called after every drop, outside the controller lock.
func WithResolveHook(fn func(Resolution)) Option {
	return func(c *Controller) { c.onResolve = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller runs the drag lifecycle: Idle -> Dragging -> Resolving -> Idle.
// The authority call is the only point where it waits; gestures that arrive
// meanwhile are refused with ErrBusy.
type Controller struct {
	view *boardview.View
	auth Authority

	mu              sync.Mutex
	state           State
	from            position.Square
	to              position.Square
	cancel          context.CancelFunc
	cancelRequested bool
	loaded          bool
	stale           bool

	timeout   time.Duration
	onResolve func(Resolution)
	logger    *zap.Logger
}

func New(view *boardview.View, auth Authority, opts ...Option) *Controller {
	c := &Controller{
		view:   view,
		auth:   auth,
		from:   position.NoSquare,
		to:     position.NoSquare,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the current encoding from the authority and renders it. It
// builds the view on first use. Later calls re-synchronise.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Resolving {
		c.stale = true
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	encoding, err := c.auth.Position(ctx)
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}
	return c.Refresh(encoding)
}

// Resync is Load under the name the shell uses after a stale resolution or a
// feed event.
func (c *Controller) Resync(ctx context.Context) error { return c.Load(ctx) }

// Refresh renders an encoding pushed by the authority. A malformed encoding
// leaves the view untouched.
func (c *Controller) Refresh(encoding string) error {
	grid, err := position.Decode(encoding)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Resolving {
		c.stale = true
		return ErrBusy
	}
	if !c.view.Built() {
		if err := c.view.Build(); err != nil && !errors.Is(err, boardview.ErrAlreadyBuilt) {
			return err
		}
	}
	if err := c.view.Populate(grid); err != nil {
		return err
	}
	c.loaded = true
	c.stale = false
	if c.state == Dragging && grid.At(c.from) == position.NoPiece {
		c.reset()
	}
	c.logger.Debug("position_loaded", zap.String("encoding", position.Encode(grid)))
	return nil
}

// PointerDown starts a gesture on the occupant under t. The origin square is
// taken from the occupant's cell.
func (c *Controller) PointerDown(t boardview.Target) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return ErrNotLoaded
	}
	if c.state == Resolving {
		return ErrBusy
	}
	sq, ok := c.view.SquareOf(t)
	if !ok {
		return ErrNoOccupant
	}
	if _, occupied := c.view.Lookup(sq); !occupied {
		return ErrNoOccupant
	}
	c.state = Dragging
	c.from = sq
	return nil
}

// Drop finishes the gesture on t and asks the authority to validate it. The
// view changes only if the move was accepted; it is then checked against the
// authority's placement.
func (c *Controller) Drop(ctx context.Context, t boardview.Target) Resolution {
	c.mu.Lock()
	if c.state != Dragging {
		c.mu.Unlock()
		return Resolution{Outcome: OutcomeIgnored, Move: position.Move{From: position.NoSquare, To: position.NoSquare}}
	}
	from := c.from
	to, ok := c.view.SquareOf(t)
	if !ok || to == from {
		c.reset()
		c.mu.Unlock()
		res := Resolution{Outcome: OutcomeIgnored, Move: position.Move{From: from, To: to}}
		c.finish(res)
		return res
	}

	mv := position.Move{From: from, To: to}
	var (
		vctx   context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		vctx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		vctx, cancel = context.WithCancel(ctx)
	}
	c.state = Resolving
	c.to = to
	c.cancel = cancel
	c.cancelRequested = false
	c.mu.Unlock()

	accepted, err := c.auth.ValidateAndApply(vctx, from, to)
	// An accepted move may change more than from and to (castling, en
	// passant, promotion), so the authority's placement is read back.
	var confirmed string
	var confirmErr error
	if err == nil && accepted && vctx.Err() == nil {
		confirmed, confirmErr = c.auth.Position(vctx)
	}
	ctxErr := vctx.Err()
	cancel()

	c.mu.Lock()
	res := Resolution{Move: mv}
	switch {
	case c.cancelRequested || errors.Is(ctxErr, context.Canceled):
		res.Outcome = OutcomeCancelled
		res.Err = context.Canceled
		c.stale = true
	case err != nil:
		res.Outcome = OutcomeFailed
		res.Err = &ValidationError{Move: mv, Err: err}
		c.stale = true
	case accepted:
		res.Outcome = OutcomeAccepted
		c.view.Relocate(from, to)
		c.reconcile(confirmed, confirmErr)
	default:
		res.Outcome = OutcomeRejected
	}
	res.Stale = c.stale
	c.reset()
	c.mu.Unlock()

	c.finish(res)
	return res
}

// Cancel abandons the current gesture. While Dragging it returns to Idle;
// while Resolving it cancels the validation call, which then resolves as
// OutcomeCancelled without touching the view.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case Dragging:
		c.reset()
	case Resolving:
		c.cancelRequested = true
		if c.cancel != nil {
			c.cancel()
		}
	}
}

// State returns the current state and the squares it refers to.
func (c *Controller) State() (State, position.Move) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, position.Move{From: c.from, To: c.to}
}

// Stale reports whether the view may lag the authority.
func (c *Controller) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// reconcile repopulates the view from the placement read back after an
// accepted move when it differs from the relocated view. If the read failed
// or is malformed the view is marked stale.
func (c *Controller) reconcile(encoding string, readErr error) {
	if readErr != nil {
		c.logger.Warn("position_confirm_error", zap.Error(readErr))
		c.stale = true
		return
	}
	grid, err := position.Decode(encoding)
	if err != nil {
		c.logger.Warn("position_confirm_error", zap.Error(err))
		c.stale = true
		return
	}
	if grid == c.view.Snapshot() {
		return
	}
	if err := c.view.Populate(grid); err != nil {
		c.stale = true
		return
	}
	c.logger.Debug("position_reconciled", zap.String("encoding", position.Encode(grid)))
}

func (c *Controller) reset() {
	c.state = Idle
	c.from = position.NoSquare
	c.to = position.NoSquare
	c.cancel = nil
	c.cancelRequested = false
}

func (c *Controller) finish(res Resolution) {
	fields := []zap.Field{
		zap.String("from", res.Move.From.String()),
		zap.String("to", res.Move.To.String()),
		zap.String("outcome", res.Outcome.String()),
		zap.Bool("stale", res.Stale),
	}
	if res.Err != nil {
		c.logger.Warn("move_resolved", append(fields, zap.Error(res.Err))...)
	} else {
		c.logger.Info("move_resolved", fields...)
	}
	if c.onResolve != nil {
		c.onResolve(res)
	}
}
