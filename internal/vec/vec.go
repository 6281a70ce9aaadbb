// Package vec содержит координаты ячеек сетки и мировые координаты.
package vec

import (
	"fmt"
	"math"
)

// Vec2 — ячейка сетки слоя: X — столбец, Y — строка
type Vec2 struct {
	X, Y int
}

// Cell строит ячейку из пары (строка, столбец)
func Cell(row, col int) Vec2 {
	return Vec2{X: col, Y: row}
}

// Row и Col возвращают координаты в порядке сетки
func (v Vec2) Row() int { return v.Y }
func (v Vec2) Col() int { return v.X }

// Before упорядочивает ячейки построчно: сначала по строке, затем по столбцу
func (v Vec2) Before(other Vec2) bool {
	if v.Y != other.Y {
		return v.Y < other.Y
	}
	return v.X < other.X
}

func (v Vec2) String() string {
	return fmt.Sprintf("(r%d,c%d)", v.Y, v.X)
}

// Vec2Float — точка мира
type Vec2Float struct {
	X, Y float64
}

// Midpoint возвращает середину отрезка между двумя точками
func (v Vec2Float) Midpoint(other Vec2Float) Vec2Float {
	return Vec2Float{X: (v.X + other.X) / 2, Y: (v.Y + other.Y) / 2}
}

// DistanceTo — евклидово расстояние
func (v Vec2Float) DistanceTo(other Vec2Float) float64 {
	return math.Hypot(v.X-other.X, v.Y-other.Y)
}

// WithinSquare проверяет, что точка лежит строго внутри квадрата
// со стороной 2*radius вокруг center. Оси проверяются независимо.
func (v Vec2Float) WithinSquare(center Vec2Float, radius float64) bool {
	return math.Abs(v.X-center.X) < radius && math.Abs(v.Y-center.Y) < radius
}

func (v Vec2Float) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y)
}
