package world

import (
	"sort"

	"github.com/annel0/drill-dungeon/internal/vec"
)

// ActiveSet — отсортированный набор активных чанков
type ActiveSet []ChunkID

// Contains проверяет принадлежность чанка набору
func (s ActiveSet) Contains(id ChunkID) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// UpdateActive пересчитывает активные чанки целиком.
// Чанк активен, если его центр строго ближе radius к фокусу по каждой оси.
func UpdateActive(index *ChunkIndex, focal vec.Vec2Float, radius float64) ActiveSet {
	active := make(ActiveSet, 0)
	for _, chunk := range index.chunks {
		if chunk.Center.WithinSquare(focal, radius) {
			active = append(active, chunk.ID)
		}
	}
	return active
}

// ActivationDiff — изменения активного набора между двумя пересчётами
type ActivationDiff struct {
	Entered []ChunkID `json:"entered"`
	Left    []ChunkID `json:"left"`
}

// Empty возвращает true, если набор не изменился
func (d ActivationDiff) Empty() bool {
	return len(d.Entered) == 0 && len(d.Left) == 0
}

// Diff вычисляет вошедшие и покинувшие окно чанки как разность множеств
func Diff(prev, next ActiveSet) ActivationDiff {
	var diff ActivationDiff
	i, j := 0, 0
	for i < len(prev) || j < len(next) {
		switch {
		case j >= len(next) || (i < len(prev) && prev[i] < next[j]):
			diff.Left = append(diff.Left, prev[i])
			i++
		case i >= len(prev) || next[j] < prev[i]:
			diff.Entered = append(diff.Entered, next[j])
			j++
		default:
			i++
			j++
		}
	}
	return diff
}

// ActivationTracker хранит последний активный набор и выдаёт изменения
type ActivationTracker struct {
	index    *ChunkIndex
	radius   float64
	focal    vec.Vec2Float
	active   ActiveSet
	lastDiff ActivationDiff
}

// NewActivationTracker создаёт трекер с пустым активным набором
func NewActivationTracker(index *ChunkIndex, radius float64) *ActivationTracker {
	return &ActivationTracker{
		index:  index,
		radius: radius,
		active: ActiveSet{},
	}
}

// Update пересчитывает набор для нового фокуса
func (t *ActivationTracker) Update(focal vec.Vec2Float) (ActiveSet, ActivationDiff) {
	next := UpdateActive(t.index, focal, t.radius)
	t.lastDiff = Diff(t.active, next)
	t.active = next
	t.focal = focal
	return next, t.lastDiff
}

// Active возвращает текущий активный набор
func (t *ActivationTracker) Active() ActiveSet {
	return t.active
}

// LastDiff возвращает изменения последнего пересчёта
func (t *ActivationTracker) LastDiff() ActivationDiff {
	return t.lastDiff
}

// Focal возвращает последний фокус
func (t *ActivationTracker) Focal() vec.Vec2Float {
	return t.focal
}

// Radius возвращает радиус окна активации
func (t *ActivationTracker) Radius() float64 {
	return t.radius
}
