package world

import (
	"fmt"

	"github.com/annel0/drill-dungeon/internal/dungeon"
)

// LayerOptions — параметры материализации слоя
type LayerOptions struct {
	WorldWidth       float64
	WorldHeight      float64
	ChunkSide        int
	ChunkCount       int // 0 — вычислить по размеру сетки
	ActivationRadius float64
	Strict           bool // проверять согласованность арены после каждого разрушения
}

// Layer — полностью собранный слой: сетка, координаты, чанки, арена блоков
// и трекер активации. При смене слоя заменяется целиком.
type Layer struct {
	Depth   int
	Seed    uint64
	Params  dungeon.GenerationParams
	Grid    *dungeon.Grid
	Coords  *dungeon.CoordinateGrid
	Chunks  *ChunkIndex
	Blocks  *BlockGrid
	Tracker *ActivationTracker
}

// BuildLayer проводит сетку через конфигуратор, разбиение и арену блоков
func BuildLayer(grid *dungeon.Grid, opts LayerOptions) (*Layer, error) {
	coords, err := dungeon.Configure(grid, opts.WorldWidth, opts.WorldHeight)
	if err != nil {
		return nil, fmt.Errorf("конфигурация слоя: %w", err)
	}

	count := opts.ChunkCount
	if count == 0 {
		count = ExpectedChunkCount(grid.Height(), grid.Width(), opts.ChunkSide)
	}
	chunks, err := Partition(coords, opts.ChunkSide, count)
	if err != nil {
		return nil, fmt.Errorf("разбиение слоя: %w", err)
	}

	blocks, err := BuildBlockGrid(chunks, coords)
	if err != nil {
		return nil, fmt.Errorf("арена блоков: %w", err)
	}
	blocks.SetStrict(opts.Strict)

	return &Layer{
		Grid:    grid,
		Coords:  coords,
		Chunks:  chunks,
		Blocks:  blocks,
		Tracker: NewActivationTracker(chunks, opts.ActivationRadius),
	}, nil
}
