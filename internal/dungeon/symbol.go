package dungeon

import "fmt"

// Symbol — символ ячейки слоя подземелья.
// Значения совпадают с текстовым представлением слоя.
type Symbol byte

const (
	SymbolWall       Symbol = 'X' // Земля (разрушаемый блок)
	SymbolOpen       Symbol = ' ' // Пустота
	SymbolCoal       Symbol = 'C' // Уголь
	SymbolGold       Symbol = 'G' // Золото
	SymbolBorder     Symbol = 'O' // Неразрушаемая граница
	SymbolShop       Symbol = 'S' // Магазин
	SymbolEnemySpawn Symbol = 'E' // Точка появления врага (пустая ячейка)
)

// AllSymbols перечисляет все допустимые символы в фиксированном порядке.
var AllSymbols = []Symbol{
	SymbolWall,
	SymbolOpen,
	SymbolCoal,
	SymbolGold,
	SymbolBorder,
	SymbolShop,
	SymbolEnemySpawn,
}

// Valid проверяет, что символ известен генератору
func (s Symbol) Valid() bool {
	switch s {
	case SymbolWall, SymbolOpen, SymbolCoal, SymbolGold, SymbolBorder, SymbolShop, SymbolEnemySpawn:
		return true
	}
	return false
}

// IsEmpty возвращает true для ячеек без блока
func (s Symbol) IsEmpty() bool {
	return s == SymbolOpen || s == SymbolEnemySpawn
}

// Name возвращает читаемое имя символа
func (s Symbol) Name() string {
	switch s {
	case SymbolWall:
		return "wall"
	case SymbolOpen:
		return "open"
	case SymbolCoal:
		return "coal"
	case SymbolGold:
		return "gold"
	case SymbolBorder:
		return "border"
	case SymbolShop:
		return "shop"
	case SymbolEnemySpawn:
		return "enemy_spawn"
	}
	return fmt.Sprintf("unknown(%q)", byte(s))
}

func (s Symbol) String() string {
	return string(rune(s))
}
