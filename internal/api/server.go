package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"parking/internal/cache"
	"parking/internal/config"
	"parking/internal/database"
	"parking/internal/external"
	"parking/internal/handlers"
	"parking/internal/identity"
	"parking/internal/jobs"
	"parking/internal/logger"
	"parking/internal/messaging"
	"parking/internal/metrics"
	"parking/internal/middleware"
	"parking/internal/notifier"
	"parking/internal/repository"
	"parking/internal/repository/memory"
	"parking/internal/search"
	"parking/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	broker   *notifier.Broker
	sweeper  *jobs.HoldExpirationJob
	services *service.Services
	store    repository.Store
}

// NewServer собирает зависимости по конфигурации. Необязательные
// интеграции (NATS, Valkey, Elasticsearch) подключаются только если включены.
func NewServer(cfg *config.Config, reg prometheus.Registerer) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	s := &Server{config: cfg}
	if err := s.openStore(); err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(reg)
	}

	s.broker = notifier.NewBroker(m)
	deps := service.Deps{
		Store:     s.store,
		Gateway:   external.NewPaymentClient(cfg.Payment),
		Publisher: s.broker,
		Metrics:   m,
	}

	if cfg.NATS.Enabled {
		natsClient, err := messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			s.Cleanup()
			return nil, err
		}
		s.nats = natsClient
		s.broker.AddSink("nats", natsClient, notifier.DefaultSinkQueue)
	}

	if cfg.Valkey.Enabled {
		valkeyClient, err := cache.NewValkeyClient(cfg.Valkey)
		if err != nil {
			s.Cleanup()
			return nil, err
		}
		s.valkey = valkeyClient
		s.broker.AddSink("valkey", valkeyClient, notifier.DefaultSinkQueue)
		deps.Cache = valkeyClient
	}

	if cfg.Elasticsearch.Enabled {
		es, err := search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			// Поиск не критичен: без индекса зоны фильтруются в памяти
			logger.Get().Warn("Elasticsearch unavailable, zone search falls back to store", "error", err)
		} else {
			deps.Search = es
		}
	}

	s.services = service.NewServices(deps, cfg.Hold)

	if cfg.SweeperEnabled {
		s.sweeper = jobs.NewHoldExpirationJob(s.services.Holds, s.services.Availability, m, cfg.Hold.SweepInterval)
	}

	s.router = gin.New()
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Logger())
	if m != nil {
		s.router.Use(middleware.Metrics(m))
	}

	s.setupRoutes(identity.NewJWTProvider(cfg.Auth), reg)
	return s, nil
}

func (s *Server) openStore() error {
	switch s.config.StoreDriver {
	case config.StoreDriverMemory:
		logger.Get().Warn("Using in-memory store, data is lost on restart")
		s.store = memory.NewStore()
		return nil
	case config.StoreDriverPostgres:
		db, err := database.Connect(s.config.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		s.db = db
		s.store = repository.NewPostgresStore(db)
		return nil
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", s.config.StoreDriver)
	}
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes(provider identity.Provider, reg prometheus.Registerer) {
	h := handlers.NewHandlers(s.services, s.broker)
	h.RegisterRoutes(s.router, middleware.Auth(provider))

	s.router.GET("/health", s.healthCheck)
	if gatherer, ok := reg.(prometheus.Gatherer); ok && s.config.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{
		"status":  "ok",
		"service": "parking-api",
		"store":   s.config.StoreDriver,
	}

	if s.db != nil {
		check := s.db.HealthCheck(ctx)
		body["database"] = check
		if check.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
	}
	if s.valkey != nil {
		if err := s.valkey.Ping(ctx); err != nil {
			body["valkey"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			body["valkey"] = "ok"
		}
	}

	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// Start запускает фоновые задачи
func (s *Server) Start(ctx context.Context) {
	if s.sweeper != nil {
		s.sweeper.Start(ctx)
	}
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Store возвращает хранилище, через него генератор наполняет in-memory режим
func (s *Server) Store() repository.Store {
	return s.store
}

// Cleanup останавливает фоновые задачи и закрывает соединения
func (s *Server) Cleanup() error {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	// Закрытие брокера дожидается доставки событий в NATS и Valkey
	if s.broker != nil {
		s.broker.Close()
	}

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}
	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			logger.Get().Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
