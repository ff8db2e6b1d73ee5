package tui

import (
	"github.com/park285/cheese-board/internal/position"
)

// Table layout: rows 0-7 are ranks, row 8 holds file labels; column 0 holds
// rank labels and columns 1-8 are files.
const (
	boardRows  = position.NumRanks
	boardCols  = position.NumFiles
	labelRow   = boardRows
	labelCol   = 0
	firstFile  = 1
	tableRows  = boardRows + 1
	tableCols  = boardCols + 1
	cellFormat = " %c "
)

// cellToSquare maps a table cell to the square it shows. Label cells map to
// NoSquare.
func cellToSquare(row, col int, flip bool) position.Square {
	if row < 0 || row >= boardRows || col < firstFile || col >= tableCols {
		return position.NoSquare
	}
	file := col - firstFile
	rank := boardRows - 1 - row
	if flip {
		file = boardCols - 1 - file
		rank = row
	}
	return position.NewSquare(position.File(file), position.Rank(rank))
}

// squareToCell is the inverse of cellToSquare.
func squareToCell(sq position.Square, flip bool) (row, col int) {
	file := int(sq.File())
	rank := int(sq.Rank())
	if flip {
		return rank, boardCols - 1 - file + firstFile
	}
	return boardRows - 1 - rank, file + firstFile
}

func rankLabel(row int, flip bool) string {
	if flip {
		return position.Rank(row).String()
	}
	return position.Rank(boardRows - 1 - row).String()
}

func fileLabel(col int, flip bool) string {
	f := col - firstFile
	if flip {
		f = boardCols - 1 - f
	}
	return position.File(f).String()
}
