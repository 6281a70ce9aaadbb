package world

import (
	"testing"

	"github.com/annel0/drill-dungeon/internal/physics"
	"github.com/annel0/drill-dungeon/internal/vec"
)

func box(x, y, size float64) physics.Rect {
	return physics.NewBoxCollider(size, size).Bounds(vec.Vec2Float{X: x, Y: y})
}

func TestSpatialIndexQueryRect(t *testing.T) {
	si := NewSpatialIndex(16)

	si.Insert(1, box(10, 10, 4))
	si.Insert(2, box(40, 40, 4))
	si.Insert(3, box(-20, 5, 4))

	if si.Len() != 3 {
		t.Fatalf("Ожидалось 3 объекта, получено %d", si.Len())
	}

	got := si.QueryRect(physics.Rect{MinX: 0, MinY: 0, MaxX: 50, MaxY: 50})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Ожидались объекты [1 2], получено %v", got)
	}

	got = si.QueryRect(physics.Rect{MinX: -30, MinY: 0, MaxX: -15, MaxY: 10})
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("Ожидался объект 3 в отрицательных координатах, получено %v", got)
	}
}

func TestSpatialIndexUpdateAndRemove(t *testing.T) {
	si := NewSpatialIndex(16)
	si.Insert(7, box(10, 10, 2))

	si.Update(7, box(100, 100, 2))
	if got := si.QueryRect(box(10, 10, 8)); len(got) != 0 {
		t.Errorf("После перемещения объект не должен находиться в старой ячейке: %v", got)
	}
	if got := si.QueryRange(vec.Vec2Float{X: 101, Y: 101}, 3); len(got) != 1 {
		t.Errorf("Ожидался объект рядом с новой позицией, получено %v", got)
	}

	si.Remove(7)
	si.Remove(7)
	if si.Len() != 0 {
		t.Errorf("Индекс должен быть пуст, осталось %d", si.Len())
	}
	if stats := si.GetStats(); stats == "" {
		t.Error("Статистика не должна быть пустой")
	}
}
