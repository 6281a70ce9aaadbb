package dungeon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/drill-dungeon/internal/vec"
)

func TestGridFromRowsRejectsMalformed(t *testing.T) {
	_, err := GridFromRows(nil)
	assert.True(t, errors.Is(err, ErrMalformedGrid), "Пустой список строк")

	_, err = GridFromRows([]string{""})
	assert.True(t, errors.Is(err, ErrMalformedGrid), "Пустая строка")

	_, err = GridFromRows([]string{"OOO", "OO"})
	assert.True(t, errors.Is(err, ErrMalformedGrid), "Непрямоугольная сетка")

	_, err = GridFromRows([]string{"OZO"})
	assert.True(t, errors.Is(err, ErrMalformedGrid), "Неизвестный символ")
}

func TestGridCountsTrackSet(t *testing.T) {
	grid, err := GridFromRows([]string{
		"OOOO",
		"OCEO",
		"OOOO",
	})
	require.NoError(t, err)

	assert.Equal(t, 10, grid.Count(SymbolBorder))
	assert.Equal(t, 1, grid.Count(SymbolCoal))
	assert.Equal(t, 1, grid.Count(SymbolEnemySpawn))

	grid.Set(1, 1, SymbolGold)
	assert.Equal(t, 0, grid.Count(SymbolCoal))
	assert.Equal(t, 1, grid.Count(SymbolGold))

	counts := grid.Counts()
	assert.Len(t, counts, len(AllSymbols))
	assert.Equal(t, 0, counts[SymbolShop])
}

func TestGridRowsRoundTrip(t *testing.T) {
	rows := []string{
		"OOOOO",
		"OX GO",
		"OSE O",
		"OOOOO",
	}
	grid, err := GridFromRows(rows)
	require.NoError(t, err)

	assert.Equal(t, rows, grid.Rows())
	assert.Equal(t, []vec.Vec2{{X: 2, Y: 2}}, grid.EnemySpawns())
	assert.Equal(t, "O X   G O ", grid.String()[11:21])
}

func TestGridCloneIsIndependent(t *testing.T) {
	grid, err := NewGrid(3, 3, SymbolWall)
	require.NoError(t, err)

	clone := grid.Clone()
	clone.Set(1, 1, SymbolOpen)

	if grid.At(1, 1) != SymbolWall {
		t.Errorf("Изменение копии затронуло оригинал: %q", grid.At(1, 1))
	}
	if grid.Equal(clone) {
		t.Error("Сетки должны различаться")
	}
}

func TestSymbolHelpers(t *testing.T) {
	for _, s := range AllSymbols {
		assert.True(t, s.Valid(), "символ %s", s.Name())
	}
	assert.False(t, Symbol('?').Valid())
	assert.True(t, SymbolOpen.IsEmpty())
	assert.True(t, SymbolEnemySpawn.IsEmpty())
	assert.False(t, SymbolCoal.IsEmpty())
	assert.Equal(t, "C", SymbolCoal.String())
}
