package world

import (
	"errors"
	"fmt"

	"github.com/annel0/drill-dungeon/internal/dungeon"
	"github.com/annel0/drill-dungeon/internal/vec"
)

var (
	// ErrInvalidChunkSide возвращается для неположительной стороны чанка
	ErrInvalidChunkSide = errors.New("сторона чанка должна быть > 0")
	// ErrChunkCountMismatch возвращается, если запрошенное число чанков
	// не совпадает с ceil(H/side) * ceil(W/side)
	ErrChunkCountMismatch = errors.New("число чанков не соответствует размеру сетки")
)

// ChunkID — порядковый номер чанка в порядке генерации
type ChunkID int

// Chunk представляет прямоугольную часть слоя.
// Чанки у правого и верхнего краёв сетки могут быть неполными.
type Chunk struct {
	ID     ChunkID       `json:"id"`
	Start  vec.Vec2      `json:"start"` // X — столбец, Y — строка первой ячейки
	Side   int           `json:"side"`
	Rows   int           `json:"rows"`
	Cols   int           `json:"cols"`
	Center vec.Vec2Float `json:"center"`

	Blocks []BlockSpec `json:"-"`
}

// Contains проверяет, принадлежит ли ячейка чанку
func (c *Chunk) Contains(row, col int) bool {
	return row >= c.Start.Y && row < c.Start.Y+c.Rows &&
		col >= c.Start.X && col < c.Start.X+c.Cols
}

// CellCount возвращает число ячеек чанка
func (c *Chunk) CellCount() int {
	return c.Rows * c.Cols
}

// ChunkIndex — отображение ChunkID → Chunk. Не изменяется после разбиения.
type ChunkIndex struct {
	side   int
	height int
	width  int
	bandW  int // число чанков в одной полосе строк
	chunks []*Chunk
}

// ExpectedChunkCount возвращает ceil(h/side) * ceil(w/side)
func ExpectedChunkCount(height, width, side int) int {
	if side <= 0 {
		return 0
	}
	return ceilDiv(height, side) * ceilDiv(width, side)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Partition разбивает сетку на чанки side x side.
// Обход идёт полосами строк слева направо; при достижении ширины сетки
// курсор переходит к следующей полосе. count должен совпадать с
// ExpectedChunkCount, иначе возвращается ErrChunkCountMismatch.
func Partition(cg *dungeon.CoordinateGrid, side, count int) (*ChunkIndex, error) {
	if cg == nil {
		return nil, fmt.Errorf("%w: nil", dungeon.ErrMalformedGrid)
	}
	if side <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSide, side)
	}
	expected := ExpectedChunkCount(cg.Height, cg.Width, side)
	if count != expected {
		return nil, fmt.Errorf("%w: запрошено %d, для сетки %dx%d со стороной %d нужно %d",
			ErrChunkCountMismatch, count, cg.Height, cg.Width, side, expected)
	}

	index := &ChunkIndex{
		side:   side,
		height: cg.Height,
		width:  cg.Width,
		bandW:  ceilDiv(cg.Width, side),
		chunks: make([]*Chunk, 0, count),
	}

	row, col := 0, 0
	for id := 0; id < count; id++ {
		index.chunks = append(index.chunks, buildChunk(cg, ChunkID(id), row, col, side))

		col += side
		if col >= cg.Width {
			col = 0
			row += side
		}
	}
	return index, nil
}

func buildChunk(cg *dungeon.CoordinateGrid, id ChunkID, row, col, side int) *Chunk {
	rows := minInt(side, cg.Height-row)
	cols := minInt(side, cg.Width-col)

	first := cg.At(row, col).Center
	last := cg.At(row+rows-1, col+cols-1).Center

	chunk := &Chunk{
		ID:     id,
		Start:  vec.Cell(row, col),
		Side:   side,
		Rows:   rows,
		Cols:   cols,
		Center: first.Midpoint(last),
	}

	for r := row; r < row+rows; r++ {
		for c := col; c < col+cols; c++ {
			cell := cg.At(r, c)
			material, ok := MaterialForSymbol(cell.Symbol)
			if !ok {
				continue
			}
			chunk.Blocks = append(chunk.Blocks, BlockSpec{
				Cell:     vec.Cell(r, c),
				Material: material,
				Position: cell.Center,
			})
		}
	}
	return chunk
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Side возвращает сторону чанка
func (ci *ChunkIndex) Side() int { return ci.side }

// Len возвращает количество чанков
func (ci *ChunkIndex) Len() int { return len(ci.chunks) }

// Get возвращает чанк по идентификатору
func (ci *ChunkIndex) Get(id ChunkID) (*Chunk, bool) {
	if id < 0 || int(id) >= len(ci.chunks) {
		return nil, false
	}
	return ci.chunks[id], true
}

// All возвращает чанки в порядке генерации
func (ci *ChunkIndex) All() []*Chunk {
	out := make([]*Chunk, len(ci.chunks))
	copy(out, ci.chunks)
	return out
}

// IDs возвращает идентификаторы в порядке генерации
func (ci *ChunkIndex) IDs() []ChunkID {
	ids := make([]ChunkID, len(ci.chunks))
	for i := range ci.chunks {
		ids[i] = ChunkID(i)
	}
	return ids
}

// ChunkAt возвращает чанк, содержащий ячейку (row, col)
func (ci *ChunkIndex) ChunkAt(row, col int) (ChunkID, bool) {
	if row < 0 || row >= ci.height || col < 0 || col >= ci.width {
		return 0, false
	}
	return ChunkID((row/ci.side)*ci.bandW + col/ci.side), true
}

// BlockSpecCount возвращает общее число материализованных блоков
func (ci *ChunkIndex) BlockSpecCount() int {
	total := 0
	for _, c := range ci.chunks {
		total += len(c.Blocks)
	}
	return total
}
