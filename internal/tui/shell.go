package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/park285/cheese-board/internal/authority/feed"
	"github.com/park285/cheese-board/internal/boardview"
	"github.com/park285/cheese-board/internal/interaction"
	"github.com/park285/cheese-board/internal/msgcat"
	"github.com/park285/cheese-board/internal/position"
	"github.com/park285/cheese-board/pkg/boarddto"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

var (
	lightSquare = tcell.NewRGBColor(233, 207, 163)
	darkSquare  = tcell.NewRGBColor(187, 136, 96)
	pickedColor = tcell.NewRGBColor(148, 207, 255)
	lastColor   = tcell.NewRGBColor(255, 228, 120)
	whitePiece  = tcell.ColorWhite
	blackPiece  = tcell.ColorBlack
)

type Options struct {
	GameID          string
	Flip            bool
	ValidateTimeout time.Duration
	Catalog         *msgcat.Catalog
	Logger          *zap.Logger
}

// Shell is the terminal front end: a tview table whose cells carry the board
// target they represent. Selecting a cell is a pointer-down when idle and a
// drop while a piece is picked.
type Shell struct {
	app    *tview.Application
	table  *tview.Table
	status *tview.TextView
	info   *tview.TextView
	root   tview.Primitive

	view *boardview.View
	ctl  *interaction.Controller
	cat  *msgcat.Catalog

	gameID string
	flip   bool
	last   *position.Move

	logger *zap.Logger
}

func New(auth interaction.Authority, opts Options) *Shell {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Shell{
		app:    tview.NewApplication(),
		table:  tview.NewTable(),
		status: tview.NewTextView().SetDynamicColors(false),
		info:   tview.NewTextView().SetWrap(true),
		view:   boardview.New(logger.Named("view")),
		cat:    opts.Catalog,
		gameID: opts.GameID,
		flip:   opts.Flip,
		logger: logger,
	}
	s.ctl = interaction.New(s.view, auth,
		interaction.WithLogger(logger.Named("controller")),
		interaction.WithValidateTimeout(opts.ValidateTimeout),
		interaction.WithResolveHook(s.onResolve),
	)
	s.view.Subscribe(func(ch boardview.Change) {
		relocated, mv := ch.Kind == boardview.ChangeRelocated, ch.Move
		go s.app.QueueUpdateDraw(func() {
			if relocated {
				s.last = &mv
			}
			s.render()
		})
	})

	s.table.SetSelectable(true, true)
	s.table.SetSelectedFunc(s.handleSelect)
	s.table.Select(0, firstFile)

	s.info.SetBorder(true).SetTitle(" " + s.cat.Text("board.title", map[string]any{"GameID": s.gameID}) + " ")
	s.info.SetText(s.cat.Text("board.help", nil))
	s.status.SetText(s.cat.Text("board.status.loading", nil))

	s.root = tview.NewGrid().
		SetRows(tableRows*2, 3, -1).
		SetColumns(tableCols*4, 40, -1).
		AddItem(s.table, 0, 0, 1, 1, 0, 0, true).
		AddItem(s.info, 0, 1, 1, 1, 0, 0, false).
		AddItem(s.status, 1, 0, 1, 2, 0, 0, false)

	s.app.SetInputCapture(s.handleKey)
	s.render()
	return s
}

// Controller exposes the interaction controller, mainly for tests.
func (s *Shell) Controller() *interaction.Controller { return s.ctl }

// Run loads the position and blocks until the user quits.
func (s *Shell) Run(ctx context.Context) error {
	go func() {
		if err := s.ctl.Load(ctx); err != nil {
			s.logger.Error("board_load_error", zap.Error(err))
			s.setStatus(s.cat.Text("board.error.load", map[string]any{"Err": err.Error()}))
			return
		}
		s.setStatus(s.cat.Text("board.status.ready", nil))
	}()
	go func() {
		<-ctx.Done()
		s.app.Stop()
	}()
	return s.app.SetRoot(s.root, true).EnableMouse(true).Run()
}

// AttachFeed repopulates the board from pushed positions.
func (s *Shell) AttachFeed(fc *feed.Client) {
	fc.OnEvent(s.handleFeedEvent)
	fc.OnStateChange(s.handleFeedState)
}

func (s *Shell) handleFeedEvent(ev boarddto.FeedEvent) {
	err := s.ctl.Refresh(ev.Placement)
	switch {
	case errors.Is(err, interaction.ErrBusy):
		// picked up by the stale flag on the pending resolution
	case err != nil:
		s.logger.Warn("feed_refresh_error", zap.String("type", ev.Type), zap.Error(err))
	default:
		mv, ok := moveFromUCI(ev.UCI)
		go s.app.QueueUpdateDraw(func() {
			if ok {
				s.last = &mv
			}
			s.render()
		})
	}
}

func (s *Shell) handleFeedState(st feed.State) {
	key := ""
	switch st {
	case feed.StateConnected:
		key = "board.feed.connected"
	case feed.StateReconnecting:
		key = "board.feed.reconnecting"
	case feed.StateFailed:
		key = "board.feed.failed"
	}
	if key != "" {
		s.setStatus(s.cat.Text(key, nil))
	}
}

func (s *Shell) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyEscape:
		s.ctl.Cancel()
		s.render()
		return nil
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			s.app.Stop()
			return nil
		case 'r':
			go s.resync()
			return nil
		case 'f':
			// keep the cursor on the same square
			row, col := s.table.GetSelection()
			sq := cellToSquare(row, col, s.flip)
			s.flip = !s.flip
			if sq.Valid() {
				s.table.Select(squareToCell(sq, s.flip))
			}
			side := "white"
			if s.flip {
				side = "black"
			}
			s.status.SetText(s.cat.Text("board.status.flipped", map[string]any{"Side": side}))
			s.render()
			return nil
		}
	}
	return ev
}

// handleSelect runs on the UI goroutine. The drop goes to a goroutine because
// it waits on the authority.
func (s *Shell) handleSelect(row, col int) {
	target := s.targetAt(row, col)
	state, _ := s.ctl.State()
	switch state {
	case interaction.Resolving:
		s.status.SetText(s.cat.Text("board.status.busy", nil))
	case interaction.Dragging:
		if sq, ok := s.view.SquareOf(target); ok {
			_, pending := s.ctl.State()
			if sq != pending.From {
				s.status.SetText(s.cat.Text("board.status.resolving", map[string]any{
					"Move": position.Move{From: pending.From, To: sq}.String(),
				}))
			}
		}
		go s.ctl.Drop(context.Background(), target)
	default:
		s.pick(target)
	}
	s.render()
}

func (s *Shell) pick(target boardview.Target) {
	err := s.ctl.PointerDown(target)
	sq, _ := s.view.SquareOf(target)
	switch {
	case err == nil:
		piece, _ := s.view.Lookup(sq)
		s.status.SetText(s.cat.Text("board.status.picked", map[string]any{"Piece": piece.String(), "Square": sq.String()}))
	case errors.Is(err, interaction.ErrNoOccupant):
		s.status.SetText(s.cat.Text("board.status.empty", map[string]any{"Square": sq.String()}))
	case errors.Is(err, interaction.ErrBusy):
		s.status.SetText(s.cat.Text("board.status.busy", nil))
	case errors.Is(err, interaction.ErrNotLoaded):
		s.status.SetText(s.cat.Text("board.status.loading", nil))
	}
}

func (s *Shell) onResolve(res interaction.Resolution) {
	data := map[string]any{"Move": res.Move.String()}
	key := "board.outcome." + res.Outcome.String()
	if res.Outcome == interaction.OutcomeFailed {
		data["Err"] = errString(res.Err)
	}
	msg := s.cat.Text(key, data)
	if res.Stale {
		msg += " | " + s.cat.Text("board.status.stale", nil)
		go s.resync()
	}
	s.setStatus(msg)
}

func (s *Shell) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.ctl.Resync(ctx); err != nil {
		if !errors.Is(err, interaction.ErrBusy) {
			s.logger.Warn("board_resync_error", zap.Error(err))
			s.setStatus(s.cat.Text("board.error.load", map[string]any{"Err": err.Error()}))
		}
		return
	}
	s.setStatus(s.cat.Text("board.status.resynced", nil))
}

func (s *Shell) setStatus(text string) {
	go s.app.QueueUpdateDraw(func() { s.status.SetText(text) })
}

// render rebuilds every table cell from the view. Each board cell carries its
// target as the cell reference.
func (s *Shell) render() {
	state, pending := s.ctl.State()
	for row := 0; row < tableRows; row++ {
		for col := 0; col < tableCols; col++ {
			s.table.SetCell(row, col, s.cellFor(row, col, state, pending))
		}
	}
}

func (s *Shell) cellFor(row, col int, state interaction.State, pending position.Move) *tview.TableCell {
	if row == labelRow || col == labelCol {
		text := ""
		switch {
		case row == labelRow && col != labelCol:
			text = fileLabel(col, s.flip)
		case col == labelCol && row != labelRow:
			text = rankLabel(row, s.flip)
		}
		return tview.NewTableCell(fmt.Sprintf(" %s ", text)).
			SetAlign(tview.AlignCenter).
			SetSelectable(false)
	}

	sq := cellToSquare(row, col, s.flip)
	bg := darkSquare
	if s.view.ShadeOf(sq) == boardview.Light {
		bg = lightSquare
	}
	if s.last != nil && (s.last.From == sq || s.last.To == sq) {
		bg = lastColor
	}
	if state != interaction.Idle && pending.From == sq {
		bg = pickedColor
	}

	text := fmt.Sprintf(cellFormat, ' ')
	var ref boardview.Target = boardview.CellTarget(sq)
	fg := whitePiece
	if m, ok := s.view.MarkerAt(sq); ok {
		text = fmt.Sprintf(cellFormat, rune(m.Piece))
		ref = boardview.MarkerTarget(m.ID)
		if m.Piece.Color() == position.Black {
			fg = blackPiece
		}
	}
	return tview.NewTableCell(text).
		SetAlign(tview.AlignCenter).
		SetTextColor(fg).
		SetBackgroundColor(bg).
		SetAttributes(tcell.AttrBold).
		SetReference(ref)
}

func (s *Shell) targetAt(row, col int) boardview.Target {
	cell := s.table.GetCell(row, col)
	if cell == nil {
		return boardview.Outside()
	}
	if t, ok := cell.GetReference().(boardview.Target); ok {
		return t
	}
	return boardview.Outside()
}

func moveFromUCI(uci string) (position.Move, bool) {
	if len(uci) < 4 {
		return position.Move{}, false
	}
	from, err := position.ParseSquare(uci[0:2])
	if err != nil {
		return position.Move{}, false
	}
	to, err := position.ParseSquare(uci[2:4])
	if err != nil {
		return position.Move{}, false
	}
	return position.Move{From: from, To: to}, true
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
