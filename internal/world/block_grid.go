package world

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/annel0/drill-dungeon/internal/dungeon"
	"github.com/annel0/drill-dungeon/internal/physics"
	"github.com/annel0/drill-dungeon/internal/vec"
)

// ErrCellOccupied возвращается при попытке разместить второй блок в ячейке
var ErrCellOccupied = errors.New("ячейка уже занята блоком")

// Filter выбирает представление BlockGrid для запросов
type Filter uint8

const (
	FilterAll Filter = iota
	FilterDestructible
	FilterIndestructible
)

// ConsistencyError описывает нарушение согласованности представлений арены
type ConsistencyError struct {
	Block  BlockID
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("нарушена согласованность BlockGrid: блок %d: %s", e.Block, e.Reason)
}

type idSet map[BlockID]struct{}

type blockSlot struct {
	block Block
	alive bool
}

// BlockGrid — арена блоков одного слоя.
// Блок живёт в единственном слоте; все представления (все блоки,
// разрушаемые, неразрушаемые, по материалу, по чанку, по ячейке) хранят
// только идентификаторы и обновляются вместе в Break.
type BlockGrid struct {
	rows, cols  int
	blockWidth  float64
	blockHeight float64

	slots  []blockSlot
	byCell []int32 // индекс слота + 1, 0 — пусто

	all            idSet
	destructible   idSet
	indestructible idSet
	byMaterial     [materialCount]idSet
	byChunk        map[ChunkID]idSet

	destroyed []vec.Vec2
	strict    bool
}

// NewBlockGrid создаёт пустую арену для сетки rows x cols
func NewBlockGrid(rows, cols int, blockWidth, blockHeight float64) *BlockGrid {
	bg := &BlockGrid{
		rows:           rows,
		cols:           cols,
		blockWidth:     blockWidth,
		blockHeight:    blockHeight,
		byCell:         make([]int32, rows*cols),
		all:            make(idSet),
		destructible:   make(idSet),
		indestructible: make(idSet),
		byChunk:        make(map[ChunkID]idSet),
	}
	for i := range bg.byMaterial {
		bg.byMaterial[i] = make(idSet)
	}
	return bg
}

// BuildBlockGrid размещает блоки всех чанков в новой арене.
// Идентификаторы выдаются в порядке чанков, внутри чанка — построчно.
func BuildBlockGrid(index *ChunkIndex, cg *dungeon.CoordinateGrid) (*BlockGrid, error) {
	bg := NewBlockGrid(cg.Height, cg.Width, cg.BlockWidth, cg.BlockHeight)
	for _, chunk := range index.chunks {
		for _, spec := range chunk.Blocks {
			if _, err := bg.Add(spec, chunk.ID); err != nil {
				return nil, err
			}
		}
	}
	return bg, nil
}

// SetStrict включает проверку согласованности после каждого разрушения
func (bg *BlockGrid) SetStrict(strict bool) {
	bg.strict = strict
}

// Add размещает блок и регистрирует его во всех представлениях
func (bg *BlockGrid) Add(spec BlockSpec, chunk ChunkID) (BlockID, error) {
	if !bg.inBounds(spec.Cell.Y, spec.Cell.X) {
		return 0, fmt.Errorf("ячейка %v вне сетки %dx%d", spec.Cell, bg.rows, bg.cols)
	}
	cellIdx := spec.Cell.Y*bg.cols + spec.Cell.X
	if bg.byCell[cellIdx] != 0 {
		return 0, fmt.Errorf("%w: %v", ErrCellOccupied, spec.Cell)
	}

	id := BlockID(len(bg.slots))
	bg.slots = append(bg.slots, blockSlot{
		block: Block{
			ID:       id,
			Material: spec.Material,
			Cell:     spec.Cell,
			Position: spec.Position,
			Chunk:    chunk,
			Collider: physics.NewBoxCollider(bg.blockWidth, bg.blockHeight),
		},
		alive: true,
	})
	bg.byCell[cellIdx] = int32(id) + 1

	bg.all[id] = struct{}{}
	if spec.Material.Destructible() {
		bg.destructible[id] = struct{}{}
	} else {
		bg.indestructible[id] = struct{}{}
	}
	bg.byMaterial[spec.Material][id] = struct{}{}

	set, ok := bg.byChunk[chunk]
	if !ok {
		set = make(idSet)
		bg.byChunk[chunk] = set
	}
	set[id] = struct{}{}

	return id, nil
}

// Exists проверяет, что блок ещё не разрушен
func (bg *BlockGrid) Exists(id BlockID) bool {
	return int(id) < len(bg.slots) && bg.slots[id].alive
}

// Get возвращает живой блок
func (bg *BlockGrid) Get(id BlockID) (Block, bool) {
	if !bg.Exists(id) {
		return Block{}, false
	}
	return bg.slots[id].block, true
}

// At возвращает блок в ячейке (row, col)
func (bg *BlockGrid) At(row, col int) (Block, bool) {
	if !bg.inBounds(row, col) {
		return Block{}, false
	}
	slot := bg.byCell[row*bg.cols+col]
	if slot == 0 {
		return Block{}, false
	}
	return bg.Get(BlockID(slot - 1))
}

// Break разрушает блок и удаляет его из всех представлений.
// Повторный вызов для уже разрушенного блока ничего не делает и возвращает false.
func (bg *BlockGrid) Break(id BlockID) (Block, bool) {
	if !bg.Exists(id) {
		return Block{}, false
	}

	slot := &bg.slots[id]
	b := slot.block
	slot.alive = false

	bg.byCell[b.Cell.Y*bg.cols+b.Cell.X] = 0
	delete(bg.all, id)
	delete(bg.destructible, id)
	delete(bg.indestructible, id)
	delete(bg.byMaterial[b.Material], id)
	if set, ok := bg.byChunk[b.Chunk]; ok {
		delete(set, id)
	}
	bg.destroyed = append(bg.destroyed, b.Cell)

	if bg.strict {
		bg.MustBeConsistent()
	}
	return b, true
}

// BreakAt разрушает блок в ячейке, если он есть
func (bg *BlockGrid) BreakAt(cell vec.Vec2) (Block, bool) {
	b, ok := bg.At(cell.Y, cell.X)
	if !ok {
		return Block{}, false
	}
	return bg.Break(b.ID)
}

// Overlapping возвращает блоки представления filter, строго пересекающие rect.
// Результат отсортирован по возрастанию идентификатора.
func (bg *BlockGrid) Overlapping(rect physics.Rect, filter Filter) []BlockID {
	if bg.rows == 0 || bg.cols == 0 {
		return nil
	}
	minCol := int(math.Floor(rect.MinX / bg.blockWidth))
	maxCol := int(math.Floor(rect.MaxX / bg.blockWidth))
	minRow := int(math.Floor(rect.MinY / bg.blockHeight))
	maxRow := int(math.Floor(rect.MaxY / bg.blockHeight))
	if maxCol < 0 || maxRow < 0 || minCol >= bg.cols || minRow >= bg.rows {
		return nil
	}
	minCol = clamp(minCol, 0, bg.cols-1)
	maxCol = clamp(maxCol, 0, bg.cols-1)
	minRow = clamp(minRow, 0, bg.rows-1)
	maxRow = clamp(maxRow, 0, bg.rows-1)

	var ids []BlockID
	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			slot := bg.byCell[r*bg.cols+c]
			if slot == 0 {
				continue
			}
			b := bg.slots[slot-1].block
			if !bg.matches(b.ID, filter) || !b.Bounds().Overlaps(rect) {
				continue
			}
			ids = append(ids, b.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (bg *BlockGrid) matches(id BlockID, filter Filter) bool {
	switch filter {
	case FilterDestructible:
		_, ok := bg.destructible[id]
		return ok
	case FilterIndestructible:
		_, ok := bg.indestructible[id]
		return ok
	default:
		_, ok := bg.all[id]
		return ok
	}
}

// Len возвращает число живых блоков
func (bg *BlockGrid) Len() int {
	return len(bg.all)
}

// Count возвращает число живых блоков материала
func (bg *BlockGrid) Count(m Material) int {
	return len(bg.byMaterial[m])
}

// DestructibleCount возвращает размер представления разрушаемых блоков
func (bg *BlockGrid) DestructibleCount() int {
	return len(bg.destructible)
}

// IndestructibleCount возвращает размер представления неразрушаемых блоков
func (bg *BlockGrid) IndestructibleCount() int {
	return len(bg.indestructible)
}

// ChunkBlocks возвращает живые блоки чанка, отсортированные по ID
func (bg *BlockGrid) ChunkBlocks(chunk ChunkID) []Block {
	set := bg.byChunk[chunk]
	out := make([]Block, 0, len(set))
	for id := range set {
		out = append(out, bg.slots[id].block)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DestroyedCells возвращает ячейки разрушенных блоков построчно
func (bg *BlockGrid) DestroyedCells() []vec.Vec2 {
	out := make([]vec.Vec2, len(bg.destroyed))
	copy(out, bg.destroyed)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Verify проверяет согласованность всех представлений со слотами арены
func (bg *BlockGrid) Verify() error {
	for i := range bg.slots {
		id := BlockID(i)
		slot := bg.slots[i]
		_, inAll := bg.all[id]
		_, inD := bg.destructible[id]
		_, inI := bg.indestructible[id]

		materials := 0
		for m := range bg.byMaterial {
			if _, ok := bg.byMaterial[m][id]; ok {
				materials++
				if Material(m) != slot.block.Material {
					return &ConsistencyError{Block: id, Reason: fmt.Sprintf("в представлении чужого материала %s", Material(m))}
				}
			}
		}

		if !slot.alive {
			if inAll || inD || inI || materials > 0 {
				return &ConsistencyError{Block: id, Reason: "разрушенный блок остался в представлениях"}
			}
			continue
		}

		switch {
		case !inAll:
			return &ConsistencyError{Block: id, Reason: "живой блок отсутствует в общем индексе"}
		case materials != 1:
			return &ConsistencyError{Block: id, Reason: fmt.Sprintf("в %d представлениях материалов", materials)}
		case inD == inI:
			return &ConsistencyError{Block: id, Reason: "должен быть ровно в одном из разрушаемых/неразрушаемых"}
		case inD != slot.block.Material.Destructible():
			return &ConsistencyError{Block: id, Reason: "представление разрушаемости не совпадает с материалом"}
		}
		cell := slot.block.Cell
		if bg.byCell[cell.Y*bg.cols+cell.X] != int32(id)+1 {
			return &ConsistencyError{Block: id, Reason: "ячейка ссылается на другой блок"}
		}
	}

	for id := range bg.all {
		if !bg.Exists(id) {
			return &ConsistencyError{Block: id, Reason: "общий индекс ссылается на разрушенный блок"}
		}
	}
	return nil
}

// MustBeConsistent паникует с *ConsistencyError при нарушении согласованности
func (bg *BlockGrid) MustBeConsistent() {
	if err := bg.Verify(); err != nil {
		panic(err)
	}
}

func (bg *BlockGrid) inBounds(row, col int) bool {
	return row >= 0 && row < bg.rows && col >= 0 && col < bg.cols
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
