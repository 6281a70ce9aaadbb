package game

import (
	"github.com/annel0/drill-dungeon/internal/combat"
	"github.com/annel0/drill-dungeon/internal/config"
	"github.com/annel0/drill-dungeon/internal/dungeon"
	"github.com/annel0/drill-dungeon/internal/world"
)

// seedStride разводит зерна соседних слоёв
const seedStride = 7919

// Параметры врагов, расставляемых в ячейках EnemySpawn
const (
	enemyIDBase       combat.ID = 1_000_000
	defaultEnemyHP              = 100
	enemyColliderPart           = 0.8 // доля размера блока
)

// Options — параметры сессии
type Options struct {
	Base       dungeon.GenerationParams
	Seed       uint64
	Difficulty bool // усложнять параметры с глубиной

	Layer world.LayerOptions

	Combat         combat.Options
	OwnerDepth     int
	EntityCellSize float64
	EnemyHealth    int
}

// OptionsFromConfig собирает параметры сессии из конфигурации
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Base:           cfg.Generation.GenerationParams,
		Seed:           cfg.Generation.Seed,
		Difficulty:     cfg.Generation.Difficulty,
		Layer:          cfg.LayerOptions(),
		Combat:         combat.Options{ProjectileDamage: cfg.Combat.ProjectileDamage},
		OwnerDepth:     cfg.Combat.OwnerChainDepth,
		EntityCellSize: cfg.Combat.EntityCellSize,
	}
}

// paramsFor возвращает параметры генерации слоя на глубине depth
func (o Options) paramsFor(depth int) dungeon.GenerationParams {
	if !o.Difficulty {
		return o.Base
	}
	return dungeon.NextLayerParams(o.Base, depth)
}

// seedFor возвращает зерно слоя на глубине depth
func (o Options) seedFor(depth int) uint64 {
	return o.Seed + uint64(depth)*seedStride
}
