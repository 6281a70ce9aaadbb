package dungeon

import (
	"errors"
	"fmt"
	"math"

	"github.com/annel0/drill-dungeon/internal/vec"
)

// ErrInvalidWorldSize возвращается для неположительного размера мира.
var ErrInvalidWorldSize = errors.New("некорректный размер мира")

// Cell — ячейка слоя с координатой центра в мире
type Cell struct {
	Symbol Symbol
	Row    int
	Col    int
	Center vec.Vec2Float
}

// CoordinateGrid — сетка слоя с мировыми координатами ячеек.
// Не изменяется после создания.
type CoordinateGrid struct {
	Height      int
	Width       int
	WorldWidth  float64
	WorldHeight float64
	BlockWidth  float64
	BlockHeight float64

	cells []Cell
}

// Configure вычисляет мировые центры всех ячеек сетки.
// Строка 0 соответствует нижнему краю мира.
func Configure(grid *Grid, worldWidth, worldHeight float64) (*CoordinateGrid, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil", ErrMalformedGrid)
	}
	if !(worldWidth > 0) || !(worldHeight > 0) || math.IsInf(worldWidth, 0) || math.IsInf(worldHeight, 0) {
		return nil, fmt.Errorf("%w: %vx%v", ErrInvalidWorldSize, worldWidth, worldHeight)
	}

	cg := &CoordinateGrid{
		Height:      grid.Height(),
		Width:       grid.Width(),
		WorldWidth:  worldWidth,
		WorldHeight: worldHeight,
		BlockWidth:  worldWidth / float64(grid.Width()),
		BlockHeight: worldHeight / float64(grid.Height()),
		cells:       make([]Cell, grid.Height()*grid.Width()),
	}

	for r := 0; r < cg.Height; r++ {
		for c := 0; c < cg.Width; c++ {
			cg.cells[r*cg.Width+c] = Cell{
				Symbol: grid.At(r, c),
				Row:    r,
				Col:    c,
				Center: cg.CenterOf(r, c),
			}
		}
	}
	return cg, nil
}

// CenterOf возвращает мировой центр ячейки (row, col)
func (cg *CoordinateGrid) CenterOf(row, col int) vec.Vec2Float {
	return vec.Vec2Float{
		X: cg.BlockWidth/2 + float64(col)*cg.BlockWidth,
		Y: cg.BlockHeight/2 + float64(row)*cg.BlockHeight,
	}
}

// At возвращает ячейку (row, col)
func (cg *CoordinateGrid) At(row, col int) Cell {
	return cg.cells[row*cg.Width+col]
}

// InBounds проверяет, что ячейка лежит внутри сетки
func (cg *CoordinateGrid) InBounds(row, col int) bool {
	return row >= 0 && row < cg.Height && col >= 0 && col < cg.Width
}

// CellAt возвращает ячейку, содержащую мировую точку pos
func (cg *CoordinateGrid) CellAt(pos vec.Vec2Float) (Cell, bool) {
	col := int(math.Floor(pos.X / cg.BlockWidth))
	row := int(math.Floor(pos.Y / cg.BlockHeight))
	if !cg.InBounds(row, col) {
		return Cell{}, false
	}
	return cg.At(row, col), true
}

// CellRange переводит мировой прямоугольник в диапазон ячеек (включительно).
// ok == false, если прямоугольник целиком вне сетки.
func (cg *CoordinateGrid) CellRange(minX, minY, maxX, maxY float64) (minRow, minCol, maxRow, maxCol int, ok bool) {
	minCol = clampInt(int(math.Floor(minX/cg.BlockWidth)), 0, cg.Width-1)
	maxCol = clampInt(int(math.Floor(maxX/cg.BlockWidth)), 0, cg.Width-1)
	minRow = clampInt(int(math.Floor(minY/cg.BlockHeight)), 0, cg.Height-1)
	maxRow = clampInt(int(math.Floor(maxY/cg.BlockHeight)), 0, cg.Height-1)
	ok = maxX >= 0 && maxY >= 0 && minX < cg.WorldWidth && minY < cg.WorldHeight
	return
}

// EnemySpawnPositions возвращает мировые центры точек появления врагов
func (cg *CoordinateGrid) EnemySpawnPositions() []vec.Vec2Float {
	var out []vec.Vec2Float
	for _, cell := range cg.cells {
		if cell.Symbol == SymbolEnemySpawn {
			out = append(out, cell.Center)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
