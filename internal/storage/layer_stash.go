package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/dustin/go-humanize"

	"github.com/annel0/drill-dungeon/internal/dungeon"
	"github.com/annel0/drill-dungeon/internal/logging"
	"github.com/annel0/drill-dungeon/internal/vec"
)

var (
	// ErrSlotEmpty возвращается, когда в слоте нет сохранённого слоя
	ErrSlotEmpty = errors.New("слот пуст")
	// ErrStashClosed возвращается после Close
	ErrStashClosed = errors.New("хранилище слоёв закрыто")
)

// Slot — позиция соседнего слоя относительно текущего
type Slot string

const (
	SlotAbove Slot = "above"
	SlotBelow Slot = "below"
)

// Snapshot — всё, что нужно для восстановления слоя: исходная сетка
// и ячейки блоков, разрушенных до ухода со слоя.
type Snapshot struct {
	Depth     int                      `json:"depth"`
	Seed      uint64                   `json:"seed"`
	Params    dungeon.GenerationParams `json:"params"`
	Rows      []string                 `json:"rows"`
	Destroyed []vec.Vec2               `json:"destroyed,omitempty"`
	Killed    []vec.Vec2               `json:"killed,omitempty"` // ячейки EnemySpawn убитых врагов
}

// Grid восстанавливает сетку символов снимка
func (s *Snapshot) Grid() (*dungeon.Grid, error) {
	return dungeon.GridFromRows(s.Rows)
}

// LayerStash хранит снимки соседних слоёв в BadgerDB в сжатом виде
type LayerStash struct {
	db      *badger.DB
	codec   *Codec
	mutex   sync.RWMutex
	isReady bool
}

// NewLayerStash открывает хранилище. Пустой dataPath — BadgerDB в памяти.
// level — уровень zstd: fastest, default, better или best.
func NewLayerStash(dataPath, level string) (*LayerStash, error) {
	codec, err := NewCodec(level)
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dataPath)
	if dataPath == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		codec.Close()
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &LayerStash{db: db, codec: codec, isReady: true}, nil
}

func slotKey(slot Slot) []byte {
	return []byte("layer:" + string(slot))
}

// Put сохраняет снимок в слот, заменяя предыдущий
func (ls *LayerStash) Put(slot Slot, snap *Snapshot) error {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()

	if !ls.isReady {
		return ErrStashClosed
	}

	packed, rawSize, err := ls.codec.Encode(snap)
	if err != nil {
		return err
	}

	err = ls.db.Update(func(txn *badger.Txn) error {
		return txn.Set(slotKey(slot), packed)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	logging.GetStorageLogger().Debug("💾 Слой %d сохранён в слот %s: %s -> %s (разрушено %d)",
		snap.Depth, slot, humanize.Bytes(uint64(rawSize)), humanize.Bytes(uint64(len(packed))), len(snap.Destroyed))
	return nil
}

// Get читает снимок из слота, не удаляя его
func (ls *LayerStash) Get(slot Slot) (*Snapshot, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()

	if !ls.isReady {
		return nil, ErrStashClosed
	}
	return ls.read(slot)
}

func (ls *LayerStash) read(slot Slot) (*Snapshot, error) {
	var packed []byte
	err := ls.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(slotKey(slot))
		if err != nil {
			return err
		}
		packed, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSlotEmpty, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	return ls.codec.Decode(packed)
}

// Take читает снимок и освобождает слот
func (ls *LayerStash) Take(slot Slot) (*Snapshot, error) {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	if !ls.isReady {
		return nil, ErrStashClosed
	}

	snap, err := ls.read(slot)
	if err != nil {
		return nil, err
	}
	if err := ls.drop(slot); err != nil {
		return nil, err
	}
	return snap, nil
}

// Has сообщает, занят ли слот
func (ls *LayerStash) Has(slot Slot) bool {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()

	if !ls.isReady {
		return false
	}
	err := ls.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(slotKey(slot))
		return err
	})
	return err == nil
}

// Drop освобождает слот. Пустой слот не считается ошибкой.
func (ls *LayerStash) Drop(slot Slot) error {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	if !ls.isReady {
		return ErrStashClosed
	}
	return ls.drop(slot)
}

func (ls *LayerStash) drop(slot Slot) error {
	err := ls.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(slotKey(slot))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// Close закрывает хранилище данных
func (ls *LayerStash) Close() error {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	if !ls.isReady {
		return nil
	}

	ls.isReady = false
	ls.codec.Close()
	return ls.db.Close()
}
