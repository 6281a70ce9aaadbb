package game

import (
	"github.com/annel0/drill-dungeon/internal/combat"
	"github.com/annel0/drill-dungeon/internal/dungeon"
	"github.com/annel0/drill-dungeon/internal/storage"
	"github.com/annel0/drill-dungeon/internal/vec"
	"github.com/annel0/drill-dungeon/internal/world"
)

// LayerInfo — описание текущего слоя для внешних потребителей
type LayerInfo struct {
	Depth       int                      `json:"depth"`
	Seed        uint64                   `json:"seed"`
	Params      dungeon.GenerationParams `json:"params"`
	Height      int                      `json:"height"`
	Width       int                      `json:"width"`
	WorldWidth  float64                  `json:"world_width"`
	WorldHeight float64                  `json:"world_height"`
	Counts      map[string]int           `json:"counts"`
	Rows        []string                 `json:"rows"`
	Text        string                   `json:"text"`
}

// ChunkInfo — чанк и число живых блоков в нём
type ChunkInfo struct {
	ID     world.ChunkID `json:"id"`
	Start  vec.Vec2      `json:"start"`
	Rows   int           `json:"rows"`
	Cols   int           `json:"cols"`
	Center vec.Vec2Float `json:"center"`
	Blocks int           `json:"blocks"`
	Active bool          `json:"active"`
}

// ActivationInfo — окно активации и последние изменения
type ActivationInfo struct {
	Focal  vec.Vec2Float        `json:"focal"`
	Radius float64              `json:"radius"`
	Active world.ActiveSet      `json:"active"`
	Diff   world.ActivationDiff `json:"diff"`
}

// Stats — сводка состояния сессии
type Stats struct {
	Depth           int            `json:"depth"`
	Tick            uint64         `json:"tick"`
	Blocks          int            `json:"blocks"`
	Destructible    int            `json:"destructible"`
	Indestructible  int            `json:"indestructible"`
	ByMaterial      map[string]int `json:"by_material"`
	Destroyed       int            `json:"destroyed"`
	Chunks          int            `json:"chunks"`
	ActiveChunks    int            `json:"active_chunks"`
	Entities        int            `json:"entities"`
	LayersGenerated int            `json:"layers_generated"`
	LayersRestored  int            `json:"layers_restored"`
	HasAbove        bool           `json:"has_above"`
	HasBelow        bool           `json:"has_below"`
}

// Layer возвращает описание текущего слоя
func (s *Session) Layer() LayerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layerInfoLocked()
}

func (s *Session) layerInfoLocked() LayerInfo {
	l := s.layer
	counts := make(map[string]int)
	for sym, n := range l.Grid.Counts() {
		counts[sym.Name()] = n
	}
	return LayerInfo{
		Depth:       l.Depth,
		Seed:        l.Seed,
		Params:      l.Params,
		Height:      l.Grid.Height(),
		Width:       l.Grid.Width(),
		WorldWidth:  l.Coords.WorldWidth,
		WorldHeight: l.Coords.WorldHeight,
		Counts:      counts,
		Rows:        l.Grid.Rows(),
		Text:        l.Grid.String(),
	}
}

// Chunks возвращает индекс чанков текущего слоя
func (s *Session) Chunks() []ChunkInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.layer.Tracker.Active()
	out := make([]ChunkInfo, 0, s.layer.Chunks.Len())
	for _, c := range s.layer.Chunks.All() {
		out = append(out, ChunkInfo{
			ID:     c.ID,
			Start:  c.Start,
			Rows:   c.Rows,
			Cols:   c.Cols,
			Center: c.Center,
			Blocks: len(s.layer.Blocks.ChunkBlocks(c.ID)),
			Active: active.Contains(c.ID),
		})
	}
	return out
}

// Activation возвращает текущее окно активации
func (s *Session) Activation() ActivationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.layer.Tracker
	return ActivationInfo{
		Focal:  t.Focal(),
		Radius: t.Radius(),
		Active: t.Active(),
		Diff:   t.LastDiff(),
	}
}

// Entities возвращает копии сущностей слоя, отсортированные по ID
func (s *Session) Entities() []combat.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.entities.All()
	out := make([]combat.Entity, len(all))
	for i, e := range all {
		out[i] = *e
	}
	return out
}

// Stats возвращает сводку состояния сессии
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocks := s.layer.Blocks
	byMaterial := make(map[string]int, len(world.AllMaterials))
	for _, m := range world.AllMaterials {
		byMaterial[m.String()] = blocks.Count(m)
	}
	return Stats{
		Depth:           s.layer.Depth,
		Tick:            s.tick,
		Blocks:          blocks.Len(),
		Destructible:    blocks.DestructibleCount(),
		Indestructible:  blocks.IndestructibleCount(),
		ByMaterial:      byMaterial,
		Destroyed:       len(blocks.DestroyedCells()),
		Chunks:          s.layer.Chunks.Len(),
		ActiveChunks:    len(s.layer.Tracker.Active()),
		Entities:        s.entities.Len(),
		LayersGenerated: s.generated,
		LayersRestored:  s.restored,
		HasAbove:        s.cache.Has(storage.SlotAbove),
		HasBelow:        s.cache.Has(storage.SlotBelow),
	}
}
