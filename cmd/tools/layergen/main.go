package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/annel0/drill-dungeon/internal/config"
	"github.com/annel0/drill-dungeon/internal/dungeon"
	"github.com/annel0/drill-dungeon/internal/world"
)

func main() {
	defaults := dungeon.DefaultParams()

	var (
		configPath = flag.String("config", "", "YAML config; flags override generation section")
		height     = flag.Int("height", defaults.Height, "Layer height in cells")
		width      = flag.Int("width", defaults.Width, "Layer width in cells")
		meanCave   = flag.Float64("mean-cave", defaults.MeanDungeonSize, "Mean cave size (Poisson)")
		meanCoal   = flag.Float64("mean-coal", defaults.MeanCoalSize, "Mean coal patch size (Poisson)")
		meanGold   = flag.Float64("mean-gold", defaults.MeanGoldSize, "Mean gold patch size (Poisson)")
		caves      = flag.Int("caves", defaults.DungeonCount, "Number of caves")
		coal       = flag.Int("coal", defaults.CoalPatchCount, "Number of coal patches")
		gold       = flag.Int("gold", defaults.GoldPatchCount, "Number of gold patches")
		enemy      = flag.Float64("enemy", defaults.EnemyChance, "Enemy spawn chance per cave cell")
		shops      = flag.Int("shops", defaults.ShopCount, "Number of shops")
		prefab     = flag.Bool("prefab", defaults.PrefabEntrance, "Stamp entrance room")
		seed       = flag.Uint64("seed", 1, "Generator seed")
		depth      = flag.Int("depth", 0, "Layer depth (scales difficulty)")
		chunks     = flag.Bool("chunks", false, "Print chunk partition")
		side       = flag.Int("side", 16, "Chunk side in cells")
		worldW     = flag.Float64("world-width", 2400, "World width")
		worldH     = flag.Float64("world-height", 2400, "World height")
		showParams = flag.Bool("params", false, "Print effective params as YAML")
	)
	flag.Parse()

	params := dungeon.GenerationParams{
		Height:          *height,
		Width:           *width,
		MeanDungeonSize: *meanCave,
		MeanCoalSize:    *meanCoal,
		MeanGoldSize:    *meanGold,
		DungeonCount:    *caves,
		CoalPatchCount:  *coal,
		GoldPatchCount:  *gold,
		EnemyChance:     *enemy,
		ShopCount:       *shops,
		PrefabEntrance:  *prefab,
	}

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("❌ Config: %v", err)
		}
		params = cfg.Generation.GenerationParams
		overrideFromFlags(&params)
	}

	if *depth > 0 {
		params = dungeon.NextLayerParams(params, *depth)
	}

	if *showParams {
		out, err := yaml.Marshal(params)
		if err != nil {
			log.Fatalf("❌ Params: %v", err)
		}
		fmt.Printf("# depth %d, seed %d\n%s\n", *depth, *seed, out)
	}

	grid, err := dungeon.Generate(params, *seed)
	if err != nil {
		log.Fatalf("❌ Generate: %v", err)
	}
	fmt.Print(grid.String())
	printCounts(grid)

	if !*chunks {
		return
	}

	cg, err := dungeon.Configure(grid, *worldW, *worldH)
	if err != nil {
		log.Fatalf("❌ Configure: %v", err)
	}
	index, err := world.Partition(cg, *side, world.ExpectedChunkCount(grid.Height(), grid.Width(), *side))
	if err != nil {
		log.Fatalf("❌ Partition: %v", err)
	}

	fmt.Printf("\n🧩 Chunks: %d (side %d, block %.2fx%.2f)\n", index.Len(), index.Side(), cg.BlockWidth, cg.BlockHeight)
	for _, c := range index.All() {
		fmt.Printf("  #%-4d start=(%d,%d) %dx%d center=(%.1f, %.1f) blocks=%d\n",
			c.ID, c.Start.Y, c.Start.X, c.Rows, c.Cols, c.Center.X, c.Center.Y, len(c.Blocks))
	}
}

// overrideFromFlags применяет только явно заданные флаги поверх конфигурации
func overrideFromFlags(p *dungeon.GenerationParams) {
	flag.Visit(func(f *flag.Flag) {
		g := f.Value.(flag.Getter).Get()
		switch f.Name {
		case "height":
			p.Height = g.(int)
		case "width":
			p.Width = g.(int)
		case "mean-cave":
			p.MeanDungeonSize = g.(float64)
		case "mean-coal":
			p.MeanCoalSize = g.(float64)
		case "mean-gold":
			p.MeanGoldSize = g.(float64)
		case "caves":
			p.DungeonCount = g.(int)
		case "coal":
			p.CoalPatchCount = g.(int)
		case "gold":
			p.GoldPatchCount = g.(int)
		case "enemy":
			p.EnemyChance = g.(float64)
		case "shops":
			p.ShopCount = g.(int)
		case "prefab":
			p.PrefabEntrance = g.(bool)
		}
	})
}

func printCounts(grid *dungeon.Grid) {
	counts := grid.Counts()
	names := make([]string, 0, len(counts))
	byName := make(map[string]int, len(counts))
	for sym, n := range counts {
		byName[sym.Name()] = n
		names = append(names, sym.Name())
	}
	sort.Strings(names)

	fmt.Fprintf(os.Stderr, "\n📊 %dx%d:", grid.Height(), grid.Width())
	for _, name := range names {
		fmt.Fprintf(os.Stderr, " %s=%d", name, byName[name])
	}
	fmt.Fprintln(os.Stderr)
}
