package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/drill-dungeon/internal/dungeon"
	"github.com/annel0/drill-dungeon/internal/world"
)

// Переменные окружения
const (
	EnvConfigPath = "DRILL_CONFIG"
	EnvHTTPPort   = "DRILL_HTTP_PORT"
	EnvAuthSecret = "DRILL_AUTH_SECRET"
)

// ErrInvalidConfig — базовая ошибка некорректной конфигурации
var ErrInvalidConfig = errors.New("некорректная конфигурация")

// ConfigError описывает некорректное поле конфигурации
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Config корневая структура конфигурации приложения.
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Generation GenerationConfig `yaml:"generation"`
	Combat     CombatConfig     `yaml:"combat"`
	Server     ServerConfig     `yaml:"server"`
	EventBus   EventBusConfig   `yaml:"eventbus"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// WorldConfig — размеры мира, чанков и окна активации
type WorldConfig struct {
	Width            float64 `yaml:"width"`
	Height           float64 `yaml:"height"`
	ChunkSide        int     `yaml:"chunk_side"`
	ChunkCount       int     `yaml:"chunk_count"` // 0 — вычислить по размеру сетки
	ActivationRadius float64 `yaml:"activation_radius"`
}

// GenerationConfig — параметры генерации слоёв
type GenerationConfig struct {
	dungeon.GenerationParams `yaml:",inline"`

	Seed       uint64 `yaml:"seed"`
	Difficulty bool   `yaml:"difficulty_scaling"`
}

// CombatConfig — параметры резолвера столкновений
type CombatConfig struct {
	ProjectileDamage int     `yaml:"projectile_damage"`
	OwnerChainDepth  int     `yaml:"owner_chain_depth"`
	EntityCellSize   float64 `yaml:"entity_cell_size"`
	StrictBlocks     bool    `yaml:"strict_blocks"`
}

// ServerConfig — HTTP-сервер и тики
type ServerConfig struct {
	HTTPPort     int    `yaml:"http_port"`
	TickRate     int    `yaml:"tick_rate"` // тиков в секунду для фонового цикла, 0 — только по запросу
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	AuthSecret   string `yaml:"auth_secret"` // base64, пусто — без авторизации
}

// EventBusConfig — шина событий
type EventBusConfig struct {
	Mode      string `yaml:"mode"` // memory | nats
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Capacity  int    `yaml:"capacity"`
}

// StorageConfig — кэш соседних слоёв
type StorageConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Backend   string `yaml:"backend"`    // badger | redis
	Path      string `yaml:"path"`       // каталог BadgerDB, пусто — в памяти
	ZstdLevel string `yaml:"zstd_level"` // fastest | default | better | best

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig — подключение к Redis для backend: redis
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig — уровни логирования
type LoggingConfig struct {
	Level     string `yaml:"level"`
	FileLevel string `yaml:"file_level"`
	Dir       string `yaml:"dir"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Width:            2400,
			Height:           2400,
			ChunkSide:        16,
			ChunkCount:       64,
			ActivationRadius: 800,
		},
		Generation: GenerationConfig{
			GenerationParams: dungeon.DefaultParams(),
			Seed:             1,
			Difficulty:       true,
		},
		Combat: CombatConfig{
			ProjectileDamage: 15,
			OwnerChainDepth:  8,
			EntityCellSize:   64,
		},
		Server: ServerConfig{
			TickRate: 0,
		},
		EventBus: EventBusConfig{
			Mode:      "memory",
			URL:       "nats://127.0.0.1:4222",
			Stream:    "DRILL_EVENTS",
			Retention: 1,
			Capacity:  1024,
		},
		Storage: StorageConfig{
			Enabled:   true,
			Backend:   "badger",
			ZstdLevel: "default",
			Redis: RedisConfig{
				Addr: "127.0.0.1:6379",
				TTL:  time.Hour,
			},
		},
		Logging: LoggingConfig{
			Level:     "info",
			FileLevel: "debug",
			Dir:       "logs",
		},
	}
}

// GetHTTPPort возвращает порт REST API с поддержкой fallback значений
func (s *ServerConfig) GetHTTPPort() int {
	return getPortWithEnvFallback(s.HTTPPort, EnvHTTPPort, 8088)
}

// GetAuthSecret возвращает секрет токенов: config -> env
func (s *ServerConfig) GetAuthSecret() string {
	if s.AuthSecret != "" {
		return s.AuthSecret
	}
	return os.Getenv(EnvAuthSecret)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", берётся DRILL_CONFIG; если не задан и он — возвращаются дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
		if path == "" {
			return cfg, cfg.Validate()
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет конфигурацию. Значения не подрезаются.
func (c *Config) Validate() error {
	w := c.World
	switch {
	case !(w.Width > 0):
		return &ConfigError{Field: "world.width", Reason: "должно быть > 0"}
	case !(w.Height > 0):
		return &ConfigError{Field: "world.height", Reason: "должно быть > 0"}
	case w.ChunkSide <= 0:
		return &ConfigError{Field: "world.chunk_side", Reason: "должно быть > 0"}
	case w.ActivationRadius < 0:
		return &ConfigError{Field: "world.activation_radius", Reason: "не может быть отрицательным"}
	}

	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}

	if w.ChunkCount != 0 {
		expected := world.ExpectedChunkCount(c.Generation.Height, c.Generation.Width, w.ChunkSide)
		if w.ChunkCount != expected {
			return &ConfigError{
				Field:  "world.chunk_count",
				Reason: fmt.Sprintf("%d не равно ceil(%d/%d)*ceil(%d/%d)=%d", w.ChunkCount, c.Generation.Height, w.ChunkSide, c.Generation.Width, w.ChunkSide, expected),
			}
		}
	}

	if c.Combat.ProjectileDamage <= 0 {
		return &ConfigError{Field: "combat.projectile_damage", Reason: "должно быть > 0"}
	}
	if c.Combat.OwnerChainDepth <= 0 {
		return &ConfigError{Field: "combat.owner_chain_depth", Reason: "должно быть > 0"}
	}
	if c.Server.TickRate < 0 {
		return &ConfigError{Field: "server.tick_rate", Reason: "не может быть отрицательным"}
	}

	switch c.EventBus.Mode {
	case "memory", "nats":
	default:
		return &ConfigError{Field: "eventbus.mode", Reason: fmt.Sprintf("неизвестный режим %q", c.EventBus.Mode)}
	}

	switch c.Storage.Backend {
	case "badger":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return &ConfigError{Field: "storage.redis.addr", Reason: "обязателен для backend redis"}
		}
	default:
		return &ConfigError{Field: "storage.backend", Reason: fmt.Sprintf("неизвестный backend %q", c.Storage.Backend)}
	}
	if c.Storage.Redis.TTL < 0 {
		return &ConfigError{Field: "storage.redis.ttl", Reason: "не может быть отрицательным"}
	}

	switch c.Storage.ZstdLevel {
	case "fastest", "default", "better", "best":
	default:
		return &ConfigError{Field: "storage.zstd_level", Reason: fmt.Sprintf("неизвестный уровень %q", c.Storage.ZstdLevel)}
	}
	return nil
}

// LayerOptions переводит настройки мира в параметры материализации слоя
func (c *Config) LayerOptions() world.LayerOptions {
	return world.LayerOptions{
		WorldWidth:       c.World.Width,
		WorldHeight:      c.World.Height,
		ChunkSide:        c.World.ChunkSide,
		ChunkCount:       c.World.ChunkCount,
		ActivationRadius: c.World.ActivationRadius,
		Strict:           c.Combat.StrictBlocks,
	}
}
