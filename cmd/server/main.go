package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/drill-dungeon/internal/api"
	"github.com/annel0/drill-dungeon/internal/auth"
	"github.com/annel0/drill-dungeon/internal/cache"
	"github.com/annel0/drill-dungeon/internal/config"
	"github.com/annel0/drill-dungeon/internal/eventbus"
	"github.com/annel0/drill-dungeon/internal/game"
	"github.com/annel0/drill-dungeon/internal/logging"
	"github.com/annel0/drill-dungeon/internal/metrics"
	"github.com/annel0/drill-dungeon/internal/observability"
	"github.com/annel0/drill-dungeon/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $DRILL_CONFIG)")
	issueToken := flag.String("issue-token", "", "выпустить токен оператора и выйти")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "срок действия выпускаемого токена")
	newSecret := flag.Bool("new-secret", false, "сгенерировать секрет для auth_secret и выйти")
	flag.Parse()

	if *newSecret {
		fmt.Println(auth.GenerateSecureSecret())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	tokens, err := newTokenService(cfg.Server)
	if err != nil {
		log.Fatalf("❌ Ошибка настройки авторизации: %v", err)
	}
	if *issueToken != "" {
		if tokens == nil {
			log.Fatalf("❌ auth_secret не задан (%s)", config.EnvAuthSecret)
		}
		token, err := tokens.Generate(*issueToken, *tokenTTL)
		if err != nil {
			log.Fatalf("❌ Ошибка выпуска токена: %v", err)
		}
		fmt.Println(token)
		return
	}

	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	applyLogLevels(cfg.Logging)

	logging.Info("⛏️  Запуск Drill Dungeon сервера...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТРАССИРОВКА ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, api.ServiceName, cfg.Server.OTLPEndpoint)
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
		}
	}()

	// === ШИНА СОБЫТИЙ ===
	bus, err := newBus(cfg.EventBus)
	if err != nil {
		logging.Error("❌ Ошибка создания шины событий: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	if _, err := eventbus.StartLoggingListener(bus, nil); err != nil {
		logging.Warn("Не удалось подписать логгер событий: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(eventbus.NewBusCollector(bus))
	eventCounter, err := eventbus.CountEvents(ctx, bus, registry)
	if err != nil {
		logging.Error("❌ Ошибка подписки счётчика событий: %v", err)
		os.Exit(1)
	}
	defer eventCounter.Stop()

	// === ХРАНИЛИЩЕ СЛОЁВ ===
	deps := game.Deps{
		Bus:     bus,
		Metrics: metrics.NewSimMetrics(registry),
	}
	if cfg.Storage.Enabled {
		closer, err := attachLayerCache(&deps, cfg.Storage)
		if err != nil {
			logging.Error("❌ Ошибка создания хранилища слоёв: %v", err)
			os.Exit(1)
		}
		defer closer.Close()
	}

	hub := api.NewEventHub(256)
	deps.Sink = hub

	// === СЕССИЯ ===
	session, err := game.NewSession(ctx, game.OptionsFromConfig(cfg), deps)
	if err != nil {
		logging.Error("❌ Ошибка создания сессии: %v", err)
		os.Exit(1)
	}
	stats := session.Stats()
	logging.Info("🗺️  Слой %d: %d блоков, %d чанков, активно %d",
		stats.Depth, stats.Blocks, stats.Chunks, stats.ActiveChunks)

	if cfg.Server.TickRate > 0 {
		interval := time.Second / time.Duration(cfg.Server.TickRate)
		go func() {
			if err := session.Run(ctx, interval); err != nil && ctx.Err() == nil {
				logging.Error("❌ Цикл тиков остановлен: %v", err)
			}
		}()
		logging.Info("⏱️  Фоновый цикл тиков: %d/с", cfg.Server.TickRate)
	}

	// === HTTP API ===
	server := api.NewServer(api.Config{
		Addr:     fmt.Sprintf(":%d", cfg.Server.GetHTTPPort()),
		Session:  session,
		Hub:      hub,
		Registry: registry,
		Tokens:   tokens,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	logging.Info("✅ Сервер готов")
	if tokens != nil {
		logging.Info("   🔒 Изменяющие запросы требуют Bearer токен")
	}
	logging.Info("   🌐 REST API: http://localhost:%d/api/layer", cfg.Server.GetHTTPPort())
	logging.Info("   📡 События: ws://localhost:%d/ws/events", cfg.Server.GetHTTPPort())
	logging.Info("   📈 Метрики: http://localhost:%d/metrics", cfg.Server.GetHTTPPort())

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, останавливаемся...")
	case err := <-errCh:
		if err != nil {
			logging.Error("❌ Ошибка HTTP сервера: %v", err)
		}
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки API: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

func newBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.Mode == "nats" {
		bus, err := eventbus.NewJetStreamBus(eventbus.JetStreamConfig{
			URL:       cfg.URL,
			Stream:    cfg.Stream,
			Retention: time.Duration(cfg.Retention) * time.Hour,
		})
		if err != nil {
			return nil, err
		}
		logging.Info("📨 Шина событий: NATS JetStream %s (стрим %s)", cfg.URL, cfg.Stream)
		return bus, nil
	}
	return eventbus.NewMemoryBus(cfg.Capacity), nil
}

func newTokenService(cfg config.ServerConfig) (*auth.TokenService, error) {
	secret := cfg.GetAuthSecret()
	if secret == "" {
		return nil, nil
	}
	return auth.NewTokenService(secret)
}

// attachLayerCache подключает кэш соседних слоёв выбранного backend'а
func attachLayerCache(deps *game.Deps, cfg config.StorageConfig) (io.Closer, error) {
	if cfg.Backend == "redis" {
		rc, err := cache.NewRedisLayerCache(cache.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Prefix:    cfg.Redis.Prefix,
			TTL:       cfg.Redis.TTL,
			ZstdLevel: cfg.ZstdLevel,
		})
		if err != nil {
			return nil, err
		}
		deps.Cache = rc
		logging.Info("💾 Кэш слоёв: Redis %s", cfg.Redis.Addr)
		return rc, nil
	}

	stash, err := storage.NewLayerStash(cfg.Path, cfg.ZstdLevel)
	if err != nil {
		return nil, err
	}
	deps.Stash = stash
	logging.Info("💾 Кэш слоёв: BadgerDB (zstd %s)", cfg.ZstdLevel)
	return stash, nil
}

func applyLogLevels(cfg config.LoggingConfig) {
	console, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		logging.Warn("Неизвестный уровень логирования %q, используется INFO", cfg.Level)
		console = logging.INFO
	}
	file, err := logging.ParseLevel(cfg.FileLevel)
	if err != nil {
		file = logging.DEBUG
	}
	logging.SetDefaultLevels(console, file)
}
