package world

import (
	"fmt"

	"github.com/annel0/drill-dungeon/internal/dungeon"
)

// Material — материал блока
type Material uint8

const (
	MaterialDirt       Material = iota // Земля
	MaterialCoal                       // Уголь
	MaterialGold                       // Золото
	MaterialBorderWall                 // Неразрушаемая стена
	MaterialShop                       // Магазин

	materialCount // всегда последний
)

// AllMaterials перечисляет материалы в порядке объявления
var AllMaterials = []Material{
	MaterialDirt,
	MaterialCoal,
	MaterialGold,
	MaterialBorderWall,
	MaterialShop,
}

// Destructible возвращает true, если блок материала можно разрушить
func (m Material) Destructible() bool {
	switch m {
	case MaterialDirt, MaterialCoal, MaterialGold:
		return true
	case MaterialBorderWall, MaterialShop:
		return false
	}
	panic(fmt.Sprintf("неизвестный материал %d", m))
}

func (m Material) String() string {
	switch m {
	case MaterialDirt:
		return "dirt"
	case MaterialCoal:
		return "coal"
	case MaterialGold:
		return "gold"
	case MaterialBorderWall:
		return "border_wall"
	case MaterialShop:
		return "shop"
	}
	return fmt.Sprintf("material(%d)", uint8(m))
}

// MarshalText сериализует материал по имени (JSON, YAML)
func (m Material) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// MaterialForSymbol сопоставляет символ слоя материалу блока.
// Пустые ячейки блоков не имеют.
func MaterialForSymbol(s dungeon.Symbol) (Material, bool) {
	switch s {
	case dungeon.SymbolWall:
		return MaterialDirt, true
	case dungeon.SymbolCoal:
		return MaterialCoal, true
	case dungeon.SymbolGold:
		return MaterialGold, true
	case dungeon.SymbolBorder:
		return MaterialBorderWall, true
	case dungeon.SymbolShop:
		return MaterialShop, true
	case dungeon.SymbolOpen, dungeon.SymbolEnemySpawn:
		return 0, false
	}
	return 0, false
}
