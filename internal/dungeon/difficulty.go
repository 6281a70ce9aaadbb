package dungeon

// Предельная вероятность появления врага на глубоких слоях
const maxEnemyChance = 0.5

// NextLayerParams масштабирует параметры слоя по глубине.
// depth 0 возвращает base без изменений.
//
//	пещеры: base + depth/2
//	уголь:  max(base - depth, base/2)
//	золото: base + depth
//	враги:  min(base * (1 + 0.1*depth), 0.5)
func NextLayerParams(base GenerationParams, depth int) GenerationParams {
	if depth <= 0 {
		return base
	}

	next := base
	next.DungeonCount = base.DungeonCount + depth/2

	coal := base.CoalPatchCount - depth
	if floor := base.CoalPatchCount / 2; coal < floor {
		coal = floor
	}
	next.CoalPatchCount = coal

	next.GoldPatchCount = base.GoldPatchCount + depth

	chance := base.EnemyChance * (1 + 0.1*float64(depth))
	if chance > maxEnemyChance {
		chance = maxEnemyChance
	}
	if chance < base.EnemyChance {
		chance = base.EnemyChance
	}
	next.EnemyChance = chance

	return next
}
