package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/annel0/drill-dungeon/internal/vec"
)

func indexWithCentres(centres []vec.Vec2Float) *ChunkIndex {
	index := &ChunkIndex{side: 1, height: 1, width: len(centres), bandW: len(centres)}
	for i, c := range centres {
		index.chunks = append(index.chunks, &Chunk{ID: ChunkID(i), Side: 1, Rows: 1, Cols: 1, Center: c})
	}
	return index
}

func TestUpdateActiveSquareWindow(t *testing.T) {
	index := indexWithCentres([]vec.Vec2Float{
		{X: 0, Y: 0},
		{X: 9, Y: 9},
		{X: 10, Y: 0},  // ровно на границе окна
		{X: 12, Y: 12}, // по евклиду далеко, по осям тоже
		{X: -9.5, Y: 9.5},
	})

	active := UpdateActive(index, vec.Vec2Float{}, 10)
	assert.Equal(t, ActiveSet{0, 1, 4}, active)
	assert.True(t, active.Contains(4))
	assert.False(t, active.Contains(2))
}

// quarter возвращает кратное 0.25 число, чтобы сдвиги считались точно
func quarter(rng *rand.Rand, n int) float64 {
	return float64(rng.Intn(n)) / 4
}

func TestUpdateActiveTranslationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(17))

	for trial := 0; trial < 50; trial++ {
		centres := make([]vec.Vec2Float, 40)
		for i := range centres {
			centres[i] = vec.Vec2Float{X: quarter(rng, 1600) - 200, Y: quarter(rng, 1600) - 200}
		}
		focal := vec.Vec2Float{X: quarter(rng, 400) - 50, Y: quarter(rng, 400) - 50}
		shift := vec.Vec2Float{X: float64(rng.Intn(2000) - 1000), Y: float64(rng.Intn(2000) - 1000)}

		shifted := make([]vec.Vec2Float, len(centres))
		for i, c := range centres {
			shifted[i] = c.Add(shift)
		}

		before := UpdateActive(indexWithCentres(centres), focal, 80)
		after := UpdateActive(indexWithCentres(shifted), focal.Add(shift), 80)
		require.Equal(t, before, after, "сдвиг %v", shift)
	}
}

func TestDiffIsSetDifference(t *testing.T) {
	diff := Diff(ActiveSet{1, 2, 5, 7}, ActiveSet{2, 3, 7, 9})
	assert.Equal(t, []ChunkID{3, 9}, diff.Entered)
	assert.Equal(t, []ChunkID{1, 5}, diff.Left)

	assert.True(t, Diff(ActiveSet{1, 2}, ActiveSet{1, 2}).Empty())

	diff = Diff(nil, ActiveSet{4})
	assert.Equal(t, []ChunkID{4}, diff.Entered)
	assert.Empty(t, diff.Left)
}

func TestActivationTrackerReportsEnterLeave(t *testing.T) {
	cg := uniformCoords(t, 16, 16, 'X', 10)
	index, err := Partition(cg, 8, 4)
	require.NoError(t, err)

	tracker := NewActivationTracker(index, 50)
	active, diff := tracker.Update(vec.Vec2Float{X: 40, Y: 40})
	assert.Equal(t, ActiveSet{0}, active)
	assert.Equal(t, []ChunkID{0}, diff.Entered)

	active, diff = tracker.Update(vec.Vec2Float{X: 80, Y: 40})
	assert.Equal(t, ActiveSet{0, 1}, active)
	assert.Equal(t, []ChunkID{1}, diff.Entered)
	assert.Empty(t, diff.Left)

	active, diff = tracker.Update(vec.Vec2Float{X: 120, Y: 120})
	assert.Equal(t, ActiveSet{3}, active)
	assert.Equal(t, []ChunkID{3}, diff.Entered)
	assert.Equal(t, []ChunkID{0, 1}, diff.Left)
	assert.Equal(t, diff, tracker.LastDiff())

	events := diff.Events(index)
	require.Len(t, events, 3)
	assert.Equal(t, EventTypeChunkEntered, events[0].GetType())
	assert.Equal(t, EventTypeChunkLeft, events[2].GetType())
}
