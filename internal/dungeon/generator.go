package dungeon

import (
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/annel0/drill-dungeon/internal/logging"
)

// Направления случайного блуждания
const (
	dirUp    = iota // строка + 1
	dirRight        // столбец + 1
	dirDown         // строка - 1
	dirLeft         // столбец - 1
)

// Смещения (строка, столбец) для каждого направления
var dirOffsets = [4][2]int{
	dirUp:    {1, 0},
	dirRight: {0, 1},
	dirDown:  {-1, 0},
	dirLeft:  {0, -1},
}

// Шаг диагонали, по которой расставляются магазины
const shopStride = 7

// LayerGenerator генерирует один слой подземелья.
// Для каждого материала используется своё распределение размера кластера,
// все распределения делят один источник случайности генератора.
type LayerGenerator struct {
	params GenerationParams
	rng    *xrand.Rand

	dungeonSize distuv.Poisson
	coalSize    distuv.Poisson
	goldSize    distuv.Poisson
}

// NewLayerGenerator создаёт генератор для заданных параметров и сида
func NewLayerGenerator(params GenerationParams, seed uint64) (*LayerGenerator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	src := xrand.NewSource(seed)
	return &LayerGenerator{
		params:      params,
		rng:         xrand.New(src),
		dungeonSize: distuv.Poisson{Lambda: params.MeanDungeonSize, Src: src},
		coalSize:    distuv.Poisson{Lambda: params.MeanCoalSize, Src: src},
		goldSize:    distuv.Poisson{Lambda: params.MeanGoldSize, Src: src},
	}, nil
}

// Generate — удобная обёртка: новый генератор и один слой
func Generate(params GenerationParams, seed uint64) (*Grid, error) {
	gen, err := NewLayerGenerator(params, seed)
	if err != nil {
		return nil, err
	}
	return gen.Generate()
}

// Params возвращает параметры генератора
func (lg *LayerGenerator) Params() GenerationParams {
	return lg.params
}

// Generate строит новый слой. Порядок проходов фиксирован:
// пещеры, уголь, золото, префаб, магазины, граница.
func (lg *LayerGenerator) Generate() (*Grid, error) {
	p := lg.params
	grid, err := NewGrid(p.Height, p.Width, SymbolWall)
	if err != nil {
		return nil, err
	}

	for i := 0; i < p.DungeonCount; i++ {
		lg.walk(grid, lg.sample(lg.dungeonSize), SymbolOpen, lg.dungeonMark)
	}
	for i := 0; i < p.CoalPatchCount; i++ {
		lg.walk(grid, lg.sample(lg.coalSize), SymbolCoal, constMark(SymbolCoal))
	}
	for i := 0; i < p.GoldPatchCount; i++ {
		lg.walk(grid, lg.sample(lg.goldSize), SymbolGold, constMark(SymbolGold))
	}

	if p.PrefabEntrance {
		if !StampEntrance(grid) {
			logging.GetWorldLogger().Debug("Префаб входа не помещается в слой %dx%d, пропускаем", p.Height, p.Width)
		}
	}
	placeShops(grid, p.ShopCount)
	ApplyBorder(grid)

	logging.GetWorldLogger().Debug("Слой %dx%d сгенерирован: open=%d enemy=%d coal=%d gold=%d",
		p.Height, p.Width,
		grid.Count(SymbolOpen), grid.Count(SymbolEnemySpawn),
		grid.Count(SymbolCoal), grid.Count(SymbolGold))

	return grid, nil
}

// sample берёт размер кластера из распределения. Нулевое среднее даёт 0.
func (lg *LayerGenerator) sample(dist distuv.Poisson) int {
	if dist.Lambda == 0 {
		return 0
	}
	return int(dist.Rand())
}

func (lg *LayerGenerator) dungeonMark() Symbol {
	if lg.rng.Float64() < lg.params.EnemyChance {
		return SymbolEnemySpawn
	}
	return SymbolOpen
}

func constMark(s Symbol) func() Symbol {
	return func() Symbol { return s }
}

// walk выполняет случайное блуждание из случайной стартовой ячейки.
// Ячейка, уже имеющая символ done, пропускается и бюджет не тратит.
// Бюджет ограничен числом ячеек, которые ещё можно пометить: каждая пометка
// уменьшает бюджет на 1 и число таких ячеек не более чем на 1, поэтому
// блуждание по связной сетке всегда завершается.
func (lg *LayerGenerator) walk(grid *Grid, size int, done Symbol, mark func() Symbol) {
	if size <= 0 {
		return
	}
	eligible := grid.Height()*grid.Width() - grid.Count(done)
	if size > eligible {
		size = eligible
	}

	row := lg.rng.Intn(grid.Height())
	col := lg.rng.Intn(grid.Width())

	var valid [4]int
	for size > 0 {
		if grid.At(row, col) != done {
			grid.Set(row, col, mark())
			size--
			if size == 0 {
				break
			}
		}

		n := 0
		for dir, off := range dirOffsets {
			if grid.InBounds(row+off[0], col+off[1]) {
				valid[n] = dir
				n++
			}
		}
		if n == 0 {
			// Сетка 1x1: двигаться некуда
			continue
		}
		dir := valid[lg.rng.Intn(n)]
		row += dirOffsets[dir][0]
		col += dirOffsets[dir][1]
	}
}

// placeShops ставит магазины по диагонали от (5, 5) внутри рамки границы
func placeShops(grid *Grid, count int) {
	for i := 0; i < count; i++ {
		pos := 5 + i*shopStride
		if pos >= grid.Height()-1 || pos >= grid.Width()-1 {
			return
		}
		grid.Set(pos, pos, SymbolShop)
	}
}

// ApplyBorder перезаписывает первую и последнюю строки и столбцы границей.
// Повторный вызов ничего не меняет.
func ApplyBorder(grid *Grid) {
	h, w := grid.Height(), grid.Width()
	for c := 0; c < w; c++ {
		grid.Set(0, c, SymbolBorder)
		grid.Set(h-1, c, SymbolBorder)
	}
	for r := 0; r < h; r++ {
		grid.Set(r, 0, SymbolBorder)
		grid.Set(r, w-1, SymbolBorder)
	}
}
