package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/annel0/drill-dungeon/internal/logging"
	"github.com/annel0/drill-dungeon/internal/storage"
)

const operationTimeout = 5 * time.Second

// Config содержит конфигурацию Redis кэша слоёв.
type Config struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string        // пусто — уникальный префикс процесса
	TTL       time.Duration // 0 — без истечения
	ZstdLevel string
	PoolSize  int
}

// Metrics — счётчики обращений к кэшу.
type Metrics struct {
	Puts     int64   `json:"puts"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

// RedisLayerCache хранит снимки соседних слоёв в Redis.
// Снимки сжимаются тем же кодеком, что и в BadgerDB.
//
// Ключи имеют вид <prefix>layer:<slot>. Take атомарно читает
// и удаляет ключ в транзакции MULTI/EXEC.
type RedisLayerCache struct {
	client *redis.Client
	codec  *storage.Codec
	prefix string
	ttl    time.Duration

	puts   int64
	hits   int64
	misses int64
}

// NewRedisLayerCache подключается к Redis и проверяет соединение.
func NewRedisLayerCache(cfg Config) (*RedisLayerCache, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "drill:" + uuid.NewString() + ":"
	}
	if cfg.ZstdLevel == "" {
		cfg.ZstdLevel = "default"
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 4
	}

	codec, err := storage.NewCodec(cfg.ZstdLevel)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  operationTimeout,
		WriteTimeout: operationTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		codec.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetStorageLogger().Info("Redis layer cache initialized: %s (prefix %s)", cfg.Addr, cfg.Prefix)
	return &RedisLayerCache{client: rdb, codec: codec, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

func (r *RedisLayerCache) key(slot storage.Slot) string {
	return r.prefix + "layer:" + string(slot)
}

// Put сохраняет снимок в слот, заменяя предыдущий
func (r *RedisLayerCache) Put(slot storage.Slot, snap *storage.Snapshot) error {
	packed, _, err := r.codec.Encode(snap)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(slot), packed, r.ttl).Err(); err != nil {
		logging.GetStorageLogger().Error("Redis Set error for slot %s: %v", slot, err)
		return fmt.Errorf("redis set error: %w", err)
	}
	atomic.AddInt64(&r.puts, 1)
	return nil
}

// Take читает снимок и освобождает слот
func (r *RedisLayerCache) Take(slot storage.Slot) (*storage.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	var get *redis.StringCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, r.key(slot))
		pipe.Del(ctx, r.key(slot))
		return nil
	})
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&r.misses, 1)
		return nil, fmt.Errorf("%w: %s", storage.ErrSlotEmpty, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("redis take error: %w", err)
	}

	packed, err := get.Bytes()
	if err != nil {
		return nil, fmt.Errorf("redis take error: %w", err)
	}
	atomic.AddInt64(&r.hits, 1)
	return r.codec.Decode(packed)
}

// Get читает снимок, не освобождая слот
func (r *RedisLayerCache) Get(slot storage.Slot) (*storage.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	packed, err := r.client.Get(ctx, r.key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&r.misses, 1)
		return nil, fmt.Errorf("%w: %s", storage.ErrSlotEmpty, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	atomic.AddInt64(&r.hits, 1)
	return r.codec.Decode(packed)
}

// Drop освобождает слот; пустой слот не ошибка
func (r *RedisLayerCache) Drop(slot storage.Slot) error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key(slot)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}

// Has сообщает, занят ли слот. Ошибки Redis считаются пустым слотом.
func (r *RedisLayerCache) Has(slot storage.Slot) bool {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	n, err := r.client.Exists(ctx, r.key(slot)).Result()
	if err != nil {
		logging.GetStorageLogger().Warn("Redis Exists error for slot %s: %v", slot, err)
		return false
	}
	return n > 0
}

// GetMetrics возвращает текущие метрики кэша.
func (r *RedisLayerCache) GetMetrics() Metrics {
	m := Metrics{
		Puts:   atomic.LoadInt64(&r.puts),
		Hits:   atomic.LoadInt64(&r.hits),
		Misses: atomic.LoadInt64(&r.misses),
	}
	if total := m.Hits + m.Misses; total > 0 {
		m.HitRatio = float64(m.Hits) / float64(total)
	}
	return m
}

// Close удаляет слоты процесса и закрывает соединение.
func (r *RedisLayerCache) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key(storage.SlotAbove), r.key(storage.SlotBelow)).Err(); err != nil {
		logging.GetStorageLogger().Warn("Redis cleanup error: %v", err)
	}
	r.codec.Close()
	return r.client.Close()
}
