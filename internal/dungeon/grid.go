package dungeon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/annel0/drill-dungeon/internal/vec"
)

// ErrMalformedGrid возвращается для пустых или непрямоугольных сеток.
var ErrMalformedGrid = errors.New("некорректная сетка слоя")

// Grid — прямоугольная сетка символов одного слоя.
// Строка 0 в мировых координатах — нижняя.
type Grid struct {
	height int
	width  int
	cells  []Symbol
	counts map[Symbol]int
}

// NewGrid создаёт сетку height x width, заполненную символом fill
func NewGrid(height, width int, fill Symbol) (*Grid, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: размер %dx%d", ErrMalformedGrid, height, width)
	}
	if !fill.Valid() {
		return nil, fmt.Errorf("%w: неизвестный символ %q", ErrMalformedGrid, byte(fill))
	}

	g := &Grid{
		height: height,
		width:  width,
		cells:  make([]Symbol, height*width),
		counts: make(map[Symbol]int, len(AllSymbols)),
	}
	for i := range g.cells {
		g.cells[i] = fill
	}
	g.counts[fill] = height * width
	return g, nil
}

// GridFromRows строит сетку из текстовых строк (строка 0 — первая).
// Пустые и разные по длине строки считаются ошибкой конфигурации.
func GridFromRows(rows []string) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: нет строк", ErrMalformedGrid)
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("%w: пустая строка 0", ErrMalformedGrid)
	}

	g, err := NewGrid(len(rows), width, SymbolWall)
	if err != nil {
		return nil, err
	}
	for r, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: строка %d длиной %d, ожидалось %d", ErrMalformedGrid, r, len(row), width)
		}
		for c := 0; c < width; c++ {
			s := Symbol(row[c])
			if !s.Valid() {
				return nil, fmt.Errorf("%w: неизвестный символ %q в (%d,%d)", ErrMalformedGrid, row[c], r, c)
			}
			g.Set(r, c, s)
		}
	}
	return g, nil
}

// Height возвращает количество строк
func (g *Grid) Height() int { return g.height }

// Width возвращает количество столбцов
func (g *Grid) Width() int { return g.width }

// InBounds проверяет, что ячейка лежит внутри сетки
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.height && col >= 0 && col < g.width
}

// At возвращает символ ячейки
func (g *Grid) At(row, col int) Symbol {
	return g.cells[row*g.width+col]
}

// Set устанавливает символ ячейки и поддерживает счётчики символов
func (g *Grid) Set(row, col int, s Symbol) {
	idx := row*g.width + col
	prev := g.cells[idx]
	if prev == s {
		return
	}
	g.cells[idx] = s
	g.counts[prev]--
	g.counts[s]++
}

// Count возвращает количество ячеек с символом s
func (g *Grid) Count(s Symbol) int {
	return g.counts[s]
}

// Counts возвращает копию счётчиков по всем символам
func (g *Grid) Counts() map[Symbol]int {
	result := make(map[Symbol]int, len(AllSymbols))
	for _, s := range AllSymbols {
		result[s] = g.counts[s]
	}
	return result
}

// Row возвращает копию строки
func (g *Grid) Row(row int) []Symbol {
	out := make([]Symbol, g.width)
	copy(out, g.cells[row*g.width:(row+1)*g.width])
	return out
}

// Rows возвращает сетку в виде текстовых строк
func (g *Grid) Rows() []string {
	rows := make([]string, g.height)
	buf := make([]byte, g.width)
	for r := 0; r < g.height; r++ {
		for c := 0; c < g.width; c++ {
			buf[c] = byte(g.At(r, c))
		}
		rows[r] = string(buf)
	}
	return rows
}

// Clone создаёт независимую копию сетки
func (g *Grid) Clone() *Grid {
	clone := &Grid{
		height: g.height,
		width:  g.width,
		cells:  make([]Symbol, len(g.cells)),
		counts: make(map[Symbol]int, len(g.counts)),
	}
	copy(clone.cells, g.cells)
	for s, n := range g.counts {
		clone.counts[s] = n
	}
	return clone
}

// Equal сравнивает две сетки поэлементно
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.height != other.height || g.width != other.width {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// EnemySpawns возвращает ячейки появления врагов в порядке обхода строк
func (g *Grid) EnemySpawns() []vec.Vec2 {
	var spawns []vec.Vec2
	for r := 0; r < g.height; r++ {
		for c := 0; c < g.width; c++ {
			if g.At(r, c) == SymbolEnemySpawn {
				spawns = append(spawns, vec.Cell(r, c))
			}
		}
	}
	return spawns
}

// String выводит сетку построчно, символы разделены пробелом
func (g *Grid) String() string {
	var sb strings.Builder
	sb.Grow(g.height * (g.width*2 + 1))
	for r := 0; r < g.height; r++ {
		for c := 0; c < g.width; c++ {
			sb.WriteByte(byte(g.At(r, c)))
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
