package world

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/drill-dungeon/internal/dungeon"
	"github.com/annel0/drill-dungeon/internal/physics"
	"github.com/annel0/drill-dungeon/internal/vec"
)

func testLayer(t *testing.T, rows []string, side int) *Layer {
	t.Helper()
	grid, err := dungeon.GridFromRows(rows)
	require.NoError(t, err)
	layer, err := BuildLayer(grid, LayerOptions{
		WorldWidth:       float64(grid.Width() * 10),
		WorldHeight:      float64(grid.Height() * 10),
		ChunkSide:        side,
		ActivationRadius: 100,
		Strict:           true,
	})
	require.NoError(t, err)
	return layer
}

func TestBreakRemovesFromEveryView(t *testing.T) {
	layer := testLayer(t, []string{
		"OOOO",
		"OCGO",
		"OXSO",
		"OOOO",
	}, 2)
	bg := layer.Blocks

	coal, ok := bg.At(1, 1)
	require.True(t, ok)
	require.Equal(t, MaterialCoal, coal.Material)

	total := bg.Len()
	destructible := bg.DestructibleCount()

	broken, ok := bg.Break(coal.ID)
	require.True(t, ok)
	assert.Equal(t, coal, broken)

	assert.False(t, bg.Exists(coal.ID))
	assert.Equal(t, total-1, bg.Len())
	assert.Equal(t, destructible-1, bg.DestructibleCount())
	assert.Equal(t, 0, bg.Count(MaterialCoal))
	_, ok = bg.At(1, 1)
	assert.False(t, ok, "Ячейка должна освободиться")
	for _, b := range bg.ChunkBlocks(coal.Chunk) {
		assert.NotEqual(t, coal.ID, b.ID)
	}
	assert.NoError(t, bg.Verify())

	// Повторное разрушение по устаревшей ссылке — no-op
	_, ok = bg.Break(coal.ID)
	assert.False(t, ok)
	assert.Equal(t, total-1, bg.Len())
	assert.Equal(t, []vec.Vec2{{X: 1, Y: 1}}, bg.DestroyedCells())
}

func TestBreakAtAndUnknownIDs(t *testing.T) {
	layer := testLayer(t, []string{
		"OOO",
		"OXO",
		"OOO",
	}, 3)
	bg := layer.Blocks

	_, ok := bg.Break(BlockID(999))
	assert.False(t, ok)

	b, ok := bg.BreakAt(vec.Vec2{X: 1, Y: 1})
	require.True(t, ok)
	assert.Equal(t, MaterialDirt, b.Material)

	_, ok = bg.BreakAt(vec.Vec2{X: 1, Y: 1})
	assert.False(t, ok)
	_, ok = bg.BreakAt(vec.Vec2{X: 5, Y: 5})
	assert.False(t, ok)
}

func TestOverlappingFiltersAndEdges(t *testing.T) {
	layer := testLayer(t, []string{
		"OOOO",
		"OXCO",
		"O GO",
		"OOOO",
	}, 4)
	bg := layer.Blocks

	// Прямоугольник внутри ячеек (1,1) и (1,2)
	rect := physics.Rect{MinX: 12, MinY: 12, MaxX: 28, MaxY: 18}
	ids := bg.Overlapping(rect, FilterDestructible)
	require.Len(t, ids, 2)
	first, _ := bg.Get(ids[0])
	second, _ := bg.Get(ids[1])
	assert.Equal(t, MaterialDirt, first.Material)
	assert.Equal(t, MaterialCoal, second.Material)
	assert.Less(t, ids[0], ids[1])

	assert.Empty(t, bg.Overlapping(rect, FilterIndestructible))

	// Касание рёбрами не считается пересечением
	touching := physics.Rect{MinX: 20, MinY: 20, MaxX: 30, MaxY: 30}
	ids = bg.Overlapping(touching, FilterAll)
	require.Len(t, ids, 1)
	gold, _ := bg.Get(ids[0])
	assert.Equal(t, MaterialGold, gold.Material)

	// Выходящий за мир прямоугольник задевает границу
	outside := physics.Rect{MinX: -5, MinY: -5, MaxX: 5, MaxY: 5}
	ids = bg.Overlapping(outside, FilterIndestructible)
	require.Len(t, ids, 1)

	assert.Empty(t, bg.Overlapping(physics.Rect{MinX: 100, MinY: 100, MaxX: 120, MaxY: 120}, FilterAll))
}

func TestAddRejectsOccupiedCell(t *testing.T) {
	bg := NewBlockGrid(2, 2, 1, 1)
	spec := BlockSpec{Cell: vec.Vec2{X: 1, Y: 0}, Material: MaterialDirt}
	_, err := bg.Add(spec, 0)
	require.NoError(t, err)

	_, err = bg.Add(spec, 0)
	assert.True(t, errors.Is(err, ErrCellOccupied))

	_, err = bg.Add(BlockSpec{Cell: vec.Vec2{X: 2, Y: 0}}, 0)
	assert.Error(t, err)
}

func TestConsistencyViolationPanics(t *testing.T) {
	layer := testLayer(t, []string{
		"OOO",
		"OCO",
		"OOO",
	}, 3)
	bg := layer.Blocks
	require.NoError(t, bg.Verify())

	coal, ok := bg.At(1, 1)
	require.True(t, ok)

	// Ломаем инвариант вручную: блок пропал из общего индекса
	delete(bg.all, coal.ID)

	err := bg.Verify()
	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, coal.ID, ce.Block)

	assert.Panics(t, func() { bg.MustBeConsistent() })
}

func TestBuildLayerRejectsBadChunkCount(t *testing.T) {
	grid, err := dungeon.NewGrid(8, 8, dungeon.SymbolWall)
	require.NoError(t, err)

	_, err = BuildLayer(grid, LayerOptions{WorldWidth: 80, WorldHeight: 80, ChunkSide: 4, ChunkCount: 3})
	assert.True(t, errors.Is(err, ErrChunkCountMismatch))

	_, err = BuildLayer(grid, LayerOptions{WorldWidth: 0, WorldHeight: 80, ChunkSide: 4})
	assert.True(t, errors.Is(err, dungeon.ErrInvalidWorldSize))

	layer, err := BuildLayer(grid, LayerOptions{WorldWidth: 80, WorldHeight: 80, ChunkSide: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, layer.Chunks.Len())
	assert.Equal(t, 64, layer.Blocks.Len())
}
