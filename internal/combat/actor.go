package combat

import (
	"github.com/annel0/drill-dungeon/internal/physics"
	"github.com/annel0/drill-dungeon/internal/vec"
)

// ID — идентификатор подвижного объекта или сущности.
// Акторы и сущности используют одно пространство идентификаторов,
// 0 означает «нет владельца».
type ID uint64

// NoOwner — владелец отсутствует
const NoOwner ID = 0

// ActorKind — вид подвижного актора
type ActorKind uint8

const (
	ActorDigger     ActorKind = iota // Бур: непрерывный контакт с породой
	ActorProjectile                  // Снаряд: первый контакт выигрывает
)

func (k ActorKind) String() string {
	switch k {
	case ActorDigger:
		return "digger"
	case ActorProjectile:
		return "projectile"
	}
	return "unknown"
}

// Inventory — счётчики ресурсов актора
type Inventory struct {
	Coal int `json:"coal"`
	Gold int `json:"gold"`
}

// Actor — подвижный объект, обрабатываемый резолвером за тик
type Actor struct {
	ID       ID                  `json:"id"`
	Kind     ActorKind           `json:"kind"`
	Position vec.Vec2Float       `json:"position"`
	Velocity vec.Vec2Float       `json:"velocity"`
	Collider physics.BoxCollider `json:"collider"`

	// Inventory == nil — актор ресурсы не собирает
	Inventory *Inventory `json:"inventory,omitempty"`

	// Owner — сущность, выпустившая снаряд
	Owner ID `json:"owner,omitempty"`
	// Damage — урон снаряда; 0 означает урон по умолчанию резолвера
	Damage int `json:"damage,omitempty"`

	Removed bool `json:"removed"`
}

// Bounds возвращает прямоугольник актора
func (a *Actor) Bounds() physics.Rect {
	return a.Collider.Bounds(a.Position)
}

// NewDigger создаёт бур с пустым инвентарём
func NewDigger(id ID, pos vec.Vec2Float, collider physics.BoxCollider) *Actor {
	return &Actor{
		ID:        id,
		Kind:      ActorDigger,
		Position:  pos,
		Collider:  collider,
		Inventory: &Inventory{},
	}
}

// NewProjectile создаёт снаряд, выпущенный сущностью owner
func NewProjectile(id, owner ID, pos, velocity vec.Vec2Float, collider physics.BoxCollider) *Actor {
	return &Actor{
		ID:       id,
		Kind:     ActorProjectile,
		Position: pos,
		Velocity: velocity,
		Collider: collider,
		Owner:    owner,
	}
}
