package boardview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"io/fs"

	"github.com/park285/cheese-board/internal/position"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type MoveHighlight struct {
	From position.Square
	To   position.Square
}

type RenderOptions struct {
	Highlight *MoveHighlight
	Picked    *position.Square
	Flip      bool
}

// Renderer draws a grid to PNG using piece images from an asset set. Symbols
// without an asset are drawn as a letter.
type Renderer struct {
	pieces     *pieceSet
	squareSize int
}

func NewRenderer(assets fs.FS) *Renderer {
	return &Renderer{pieces: newPieceSet(assets), squareSize: 64}
}

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	moveHighlightFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	pickedHighlightFill = color.NRGBA{R: 148, G: 207, B: 255, A: 150}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	whiteGlyphColor     = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	blackGlyphColor     = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
	backgroundColor     = color.NRGBA{R: 28, G: 31, B: 46, A: 255}
)

func (r *Renderer) RenderPNG(ctx context.Context, grid position.Grid, opts RenderOptions) ([]byte, error) {
	const margin = 24

	squareSize := r.squareSize
	boardSize := squareSize * position.NumFiles
	origin := image.Point{X: margin, Y: margin}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, boardSize+margin*2, boardSize+margin*2))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	for _, sq := range position.AllSquares() {
		clr := darkSquare
		if sq.Light() {
			clr = lightSquare
		}
		imagedraw.Draw(img, squareRect(sq, squareSize, origin, opts.Flip), image.NewUniform(clr), image.Point{}, imagedraw.Src)
	}
	if h := opts.Highlight; h != nil {
		drawSquareOverlay(img, h.From, squareSize, origin, opts.Flip, moveHighlightFill)
		drawSquareOverlay(img, h.To, squareSize, origin, opts.Flip, moveHighlightFill)
	}
	if opts.Picked != nil {
		drawSquareOverlay(img, *opts.Picked, squareSize, origin, opts.Flip, pickedHighlightFill)
	}
	if err := r.drawPieces(img, grid, squareSize, origin, opts.Flip); err != nil {
		return nil, err
	}
	drawCoordinates(img, squareSize, origin, margin, opts.Flip)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawPieces(dst *image.RGBA, grid position.Grid, squareSize int, origin image.Point, flip bool) error {
	for _, pl := range grid.Placements() {
		rect := squareRect(pl.Square, squareSize, origin, flip)
		pieceImg, err := r.pieces.image(pl.Piece, squareSize)
		if errors.Is(err, errNoAsset) {
			drawGlyph(dst, rect, pl.Piece)
			continue
		}
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, rect, pieceImg, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawGlyph(dst *image.RGBA, rect image.Rectangle, piece position.Piece) {
	clr := blackGlyphColor
	if piece.Color() == position.White {
		clr = whiteGlyphColor
	}
	drawer := &font.Drawer{Dst: dst, Face: basicfont.Face7x13, Src: image.NewUniform(clr)}
	cx := rect.Min.X + rect.Dx()/2
	baseline := rect.Min.Y + rect.Dy()/2 + basicfont.Face7x13.Ascent/2
	drawCenteredText(drawer, piece.String(), cx, baseline)
}

func drawSquareOverlay(img *image.RGBA, sq position.Square, squareSize int, origin image.Point, flip bool, clr color.Color) {
	if img == nil || !sq.Valid() {
		return
	}
	imagedraw.Draw(img, squareRect(sq, squareSize, origin, flip), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawCoordinates(dst *image.RGBA, squareSize int, origin image.Point, margin int, flip bool) {
	drawer := &font.Drawer{Dst: dst, Face: basicfont.Face7x13, Src: image.NewUniform(coordinateTextColor)}
	ascent := basicfont.Face7x13.Ascent
	boardEnd := origin.Y + squareSize*position.NumRanks

	for i := 0; i < position.NumRanks; i++ {
		f := position.File(i)
		r := position.Rank(position.NumRanks - 1 - i)
		if flip {
			f = position.File(position.NumFiles - 1 - i)
			r = position.Rank(i)
		}
		rowCenter := origin.Y + i*squareSize + squareSize/2
		colCenter := origin.X + i*squareSize + squareSize/2
		drawCenteredText(drawer, r.String(), origin.X-margin/2, rowCenter+ascent/2)
		drawCenteredText(drawer, f.String(), colCenter, boardEnd+ascent+2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareRect(sq position.Square, squareSize int, origin image.Point, flip bool) image.Rectangle {
	col := int(sq.File())
	row := position.NumRanks - 1 - int(sq.Rank())
	if flip {
		col = position.NumFiles - 1 - col
		row = position.NumRanks - 1 - row
	}
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}
