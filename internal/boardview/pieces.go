package boardview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io/fs"
	"sync"

	"github.com/park285/cheese-board/internal/position"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// errNoAsset is returned when the asset set has no image for a piece symbol.
var errNoAsset = errors.New("piece asset not found")

type pieceCacheKey struct {
	piece position.Piece
	size  int
}

type pieceSet struct {
	assets fs.FS

	mu    sync.RWMutex
	cache map[pieceCacheKey]image.Image
}

func newPieceSet(assets fs.FS) *pieceSet {
	return &pieceSet{assets: assets, cache: make(map[pieceCacheKey]image.Image)}
}

func (s *pieceSet) image(piece position.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	s.mu.RLock()
	if img, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return img, nil
	}
	s.mu.RUnlock()

	if s.assets == nil {
		return nil, errNoAsset
	}
	name := PieceAssetName(piece)
	data, err := fs.ReadFile(s.assets, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errNoAsset
		}
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	s.mu.Lock()
	s.cache[key] = img
	s.mu.Unlock()
	return img, nil
}

// PieceAssetName maps an occupant symbol to its asset file: "wK.svg" for a
// white king, "bN.svg" for a black knight.
func PieceAssetName(piece position.Piece) string {
	prefix := "b"
	if piece.Color() == position.White {
		prefix = "w"
	}
	sym := piece
	if sym >= 'a' && sym <= 'z' {
		sym -= 'a' - 'A'
	}
	return fmt.Sprintf("%s%c.svg", prefix, rune(sym))
}

func sanitizeSVG(svg []byte) []byte {
	fixed := bytes.ReplaceAll(svg, []byte("fill:000000"), []byte("fill:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("fill: #"), []byte("fill:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: #"), []byte("stroke:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stop-color: #"), []byte("stop-color:#"))
	return fixed
}
