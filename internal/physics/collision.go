package physics

import (
	"github.com/annel0/drill-dungeon/internal/vec"
)

// BoxCollider представляет прямоугольный коллайдер в мировых единицах
type BoxCollider struct {
	Width  float64
	Height float64
}

// NewBoxCollider создаёт новый коллайдер с указанными размерами
func NewBoxCollider(width, height float64) BoxCollider {
	return BoxCollider{
		Width:  width,
		Height: height,
	}
}

// Rect — выровненный по осям прямоугольник [MinX, MaxX) × [MinY, MaxY)
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Bounds возвращает прямоугольник коллайдера с центром в pos
func (bc BoxCollider) Bounds(pos vec.Vec2Float) Rect {
	halfWidth := bc.Width / 2
	halfHeight := bc.Height / 2

	return Rect{
		MinX: pos.X - halfWidth,
		MinY: pos.Y - halfHeight,
		MaxX: pos.X + halfWidth,
		MaxY: pos.Y + halfHeight,
	}
}

// Overlaps проверяет пересечение двух прямоугольников.
// Касание рёбрами пересечением не считается.
func (r Rect) Overlaps(other Rect) bool {
	return r.MaxX > other.MinX &&
		r.MinX < other.MaxX &&
		r.MaxY > other.MinY &&
		r.MinY < other.MaxY
}

// ContainsPoint проверяет, находится ли точка внутри прямоугольника
func (r Rect) ContainsPoint(p vec.Vec2Float) bool {
	return p.X >= r.MinX && p.X < r.MaxX && p.Y >= r.MinY && p.Y < r.MaxY
}

// Center возвращает центр прямоугольника
func (r Rect) Center() vec.Vec2Float {
	return vec.Vec2Float{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// CheckBoxCollision проверяет столкновение двух коллайдеров
func CheckBoxCollision(pos1 vec.Vec2Float, collider1 BoxCollider, pos2 vec.Vec2Float, collider2 BoxCollider) bool {
	return collider1.Bounds(pos1).Overlaps(collider2.Bounds(pos2))
}
