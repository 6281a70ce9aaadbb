package dungeon

// Шаблон входной комнаты: W — неразрушаемая стена, F — пол, X — земля.
var entranceTemplate = []string{
	"WWWWFFWWWWWWWWWWWWWWWWWWWW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WFFFFFFFFFFFFFFFFFFFFFFFFW",
	"WWWWFFWWWWWWWWWWWWWWWWWWWW",
	"WWWFFFXXFFXXXXFFFFFWWWFFFW",
	"WWFWFFFXXXFFFFFWWXXWWFFFWW",
	"WFFXFFWWXXFFXFXWWFFFXXFFWW",
	"WWFFFFFWWWXXXXFFFFWWWXXFWW",
	"WWFFFFXXWWXXWWXXXXFFFFFWWW",
	"WWFFFFFFFFFFFFFFFFFFFFFWWW",
	"WWWWFFWWWWWWWWWWWWWWWWWWWW",
	"WWWWFFWWWWWWWWWWWWWWWWWWWW",
	"WWWWFFWWWWWWWWWWWWWWWWWWWW",
}

// EntranceSize возвращает размер шаблона входа (строки, столбцы)
func EntranceSize() (int, int) {
	return len(entranceTemplate), len(entranceTemplate[0])
}

func prefabSymbol(b byte) Symbol {
	switch b {
	case 'W':
		return SymbolBorder
	case 'F':
		return SymbolOpen
	default:
		return SymbolWall
	}
}

// StampEntrance рисует входную комнату по центру слоя.
// Комната должна целиком помещаться внутри рамки границы, иначе
// слой не меняется и возвращается false.
func StampEntrance(grid *Grid) bool {
	rows, cols := EntranceSize()
	if rows > grid.Height()-2 || cols > grid.Width()-2 {
		return false
	}

	top := (grid.Height() - rows) / 2
	left := (grid.Width() - cols) / 2
	for r, line := range entranceTemplate {
		for c := 0; c < len(line); c++ {
			grid.Set(top+r, left+c, prefabSymbol(line[c]))
		}
	}
	return true
}
