package world

import (
	"github.com/annel0/drill-dungeon/internal/physics"
	"github.com/annel0/drill-dungeon/internal/vec"
)

// BlockID — стабильный идентификатор блока внутри одного слоя
type BlockID uint32

// BlockSpec — материализованный, но ещё не размещённый блок чанка
type BlockSpec struct {
	Cell     vec.Vec2 // X — столбец, Y — строка
	Material Material
	Position vec.Vec2Float // Центр ячейки в мире
}

// Block представляет блок, размещённый в BlockGrid
type Block struct {
	ID       BlockID             `json:"id"`
	Material Material            `json:"material"`
	Cell     vec.Vec2            `json:"cell"`
	Position vec.Vec2Float       `json:"position"`
	Chunk    ChunkID             `json:"chunk"`
	Collider physics.BoxCollider `json:"-"`
}

// Bounds возвращает прямоугольник блока в мире
func (b Block) Bounds() physics.Rect {
	return b.Collider.Bounds(b.Position)
}

// Destructible — сокращение для b.Material.Destructible()
func (b Block) Destructible() bool {
	return b.Material.Destructible()
}
