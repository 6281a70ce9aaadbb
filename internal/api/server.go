package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/drill-dungeon/internal/auth"
	"github.com/annel0/drill-dungeon/internal/combat"
	"github.com/annel0/drill-dungeon/internal/game"
	"github.com/annel0/drill-dungeon/internal/logging"
	"github.com/annel0/drill-dungeon/internal/middleware"
	"github.com/annel0/drill-dungeon/internal/physics"
	"github.com/annel0/drill-dungeon/internal/vec"
)

// ServiceName — имя сервиса для метрик и трассировки
const ServiceName = "drill_api"

// Server — HTTP API поверх игровой сессии
type Server struct {
	router  *gin.Engine
	session *game.Session
	hub     *EventHub
	metrics *ServerMetrics
	tokens  *auth.TokenService
	http    *http.Server
}

// Config содержит конфигурацию для API сервера
type Config struct {
	Addr     string               // адрес для запуска сервера, например ":8088"
	Session  *game.Session        // игровая сессия
	Hub      *EventHub            // nil — websocket-поток отключён
	Registry *prometheus.Registry // nil — глобальный регистр Prometheus
	Tokens   *auth.TokenService   // nil — изменяющие запросы без авторизации
}

// NewServer создаёт API сервер и настраивает маршруты
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(ServiceName))
	router.Use(middleware.NewRequestLogger(nil).Handler())

	promMw := middleware.NewPrometheusMiddleware(ServiceName, cfg.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	s := &Server{
		router:  router,
		session: cfg.Session,
		hub:     cfg.Hub,
		metrics: NewServerMetrics(),
		tokens:  cfg.Tokens,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/layer", s.handleLayer)
		api.GET("/chunks", s.handleChunks)
		api.GET("/chunks/active", s.handleActive)
		api.GET("/entities", s.handleEntities)
		api.GET("/stats", s.handleStats)
	}

	write := s.router.Group("/api")
	if s.tokens != nil {
		write.Use(middleware.RequireToken(s.tokens))
	}
	{
		write.POST("/focus", s.handleFocus)
		write.POST("/tick", s.handleTick)
		write.POST("/drill/down", s.handleDrillDown)
		write.POST("/drill/up", s.handleDrillUp)
	}

	if s.hub != nil {
		s.router.GET("/ws/events", s.hub.Handler())
	}
}

// Handler возвращает http.Handler сервера
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start запускает сервер и блокируется до Shutdown
func (s *Server) Start() error {
	logging.GetAPILogger().Info("🌐 API сервер слушает %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// FocusRequest — новая точка фокуса окна активации
type FocusRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

// ActorRequest описывает актора одного тика
type ActorRequest struct {
	ID      uint64  `json:"id" binding:"required"`
	Kind    string  `json:"kind" binding:"required,oneof=digger projectile"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	VX      float64 `json:"vx"`
	VY      float64 `json:"vy"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Owner   uint64  `json:"owner"`
	Damage  int     `json:"damage"`
	Collect *bool   `json:"collect"` // бур собирает ресурсы; по умолчанию да
}

// TickRequest — акторы, обрабатываемые за один тик
type TickRequest struct {
	Actors []ActorRequest `json:"actors" binding:"dive"`
}

func (r ActorRequest) toActor() *combat.Actor {
	w, h := r.Width, r.Height
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	pos := vec.Vec2Float{X: r.X, Y: r.Y}
	collider := physics.NewBoxCollider(w, h)

	if r.Kind == "projectile" {
		a := combat.NewProjectile(combat.ID(r.ID), combat.ID(r.Owner), pos, vec.Vec2Float{X: r.VX, Y: r.VY}, collider)
		a.Damage = r.Damage
		return a
	}
	a := combat.NewDigger(combat.ID(r.ID), pos, collider)
	a.Velocity = vec.Vec2Float{X: r.VX, Y: r.VY}
	if r.Collect != nil && !*r.Collect {
		a.Inventory = nil
	}
	return a
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"depth":  s.session.Depth(),
		"time":   time.Now().Unix(),
	})
}

func (s *Server) handleLayer(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Текущий слой", Data: s.session.Layer()})
}

func (s *Server) handleChunks(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Чанки слоя", Data: s.session.Chunks()})
}

func (s *Server) handleActive(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Окно активации", Data: s.session.Activation()})
}

func (s *Server) handleEntities(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сущности слоя", Data: s.session.Entities()})
}

func (s *Server) handleStats(c *gin.Context) {
	stats := map[string]interface{}{
		"session": s.session.Stats(),
		"server":  s.metrics.Snapshot(),
	}
	if s.hub != nil {
		stats["websocket"] = gin.H{"clients": s.hub.Clients(), "dropped": s.hub.Dropped()}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Статистика получена", Data: stats})
}

func (s *Server) handleFocus(c *gin.Context) {
	var req FocusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса: " + err.Error()})
		return
	}

	active, diff := s.session.SetFocus(c.Request.Context(), vec.Vec2Float{X: *req.X, Y: *req.Y})
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Фокус обновлён",
		Data:    gin.H{"active": active, "diff": diff},
	})
}

func (s *Server) handleTick(c *gin.Context) {
	var req TickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса: " + err.Error()})
		return
	}

	actors := make([]*combat.Actor, 0, len(req.Actors))
	for _, a := range req.Actors {
		actors = append(actors, a.toActor())
	}

	res, err := s.session.Tick(c.Request.Context(), actors)
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Тик выполнен", Data: res})
}

func (s *Server) handleDrillDown(c *gin.Context) {
	info, err := s.session.DrillDown(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Спуск выполнен", Data: info})
}

func (s *Server) handleDrillUp(c *gin.Context) {
	info, err := s.session.DrillUp(c.Request.Context())
	if errors.Is(err, game.ErrNoLayerAbove) {
		c.JSON(http.StatusConflict, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Подъём выполнен", Data: info})
}
