package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/fedfs/internal/api/http"
	"github.com/GriffinCanCode/fedfs/internal/api/middleware"
	"github.com/GriffinCanCode/fedfs/internal/api/ws"
	"github.com/GriffinCanCode/fedfs/internal/federation"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/fedfs/internal/mountstore"
	"github.com/GriffinCanCode/fedfs/internal/storage"
	"github.com/GriffinCanCode/fedfs/internal/storage/local"
	"github.com/GriffinCanCode/fedfs/internal/storage/memory"
)

// EventsRoute streams invalidation events
const EventsRoute = "/api/nfs/events"

// Options overrides pieces of the server for embedding and tests
type Options struct {
	Logger *logging.Logger
	// Store replaces the store selected by the configuration
	Store mountstore.Store
}

// Server wraps the HTTP server and dependencies
type Server struct {
	config   *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	hub      *ws.Hub
	ns       *federation.Namespace
	router   *gin.Engine
	handler  http.Handler
	http     *http.Server
}

// NewServer creates a new server instance
func NewServer(ctx context.Context, cfg *config.Config, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)
	}
	logger.Info("Initializing namespace server",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("auth", cfg.Auth.Enabled()),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)
	tracer := tracing.New("fedfs", logger.Logger)

	store := opts.Store
	if store == nil {
		var err error
		store, err = mountstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			tracer.Close()
			return nil, fmt.Errorf("failed to open mount store: %w", err)
		}
	}

	root, err := rootBackend(cfg.Namespace.RootBackendPath)
	if err != nil {
		store.Close()
		tracer.Close()
		return nil, fmt.Errorf("failed to open root backend: %w", err)
	}

	hub := ws.NewHub(logger, metrics)
	ns := federation.New(federation.Options{
		Logger:  logger.Component("namespace"),
		Metrics: metrics,
		Store:   store,
		Root:    root,
		Events:  hub,
	})

	if cfg.Namespace.MountsFile != "" {
		file, err := config.LoadMountsFile(cfg.Namespace.MountsFile)
		if err != nil {
			logger.Warn("Failed to load mounts file", zap.String("path", cfg.Namespace.MountsFile), zap.Error(err))
		} else {
			ns.Bootstrap(ctx, file.Mounts)
			logger.Info("Mounts bootstrapped", zap.Int("specs", len(file.Mounts)), zap.Int("active", len(ns.ListMounts())))
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.Middleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSFromOrigins(cfg.CORS.Origins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlerMetrics := apihttp.NewHandlerMetrics(metrics, registry)
	handlers := apihttp.NewHandlers(ns, logger, handlerMetrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/metrics/json", handlerMetrics.Summary)

	api := router.Group("/api/nfs")
	if cfg.Auth.Enabled() {
		api.Use(middleware.Auth(middleware.NewAuthenticator(middleware.AuthConfig{
			Secret:  cfg.Auth.Secret,
			APIKeys: cfg.Auth.APIKeys,
		})))
	}
	api.POST("/:method", handlers.RPC)
	api.GET("/events", hub.HandleConnection)

	compressed, err := gzhttp.NewWrapper(gzhttp.MinSize(1024))
	if err != nil {
		ns.Close()
		tracer.Close()
		return nil, fmt.Errorf("failed to build compression wrapper: %w", err)
	}
	gz := compressed(router)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Upgraded connections need the raw writer
		if strings.HasPrefix(r.URL.Path, EventsRoute) {
			router.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})

	logger.Info("Server initialized successfully", zap.Int("methods", len(handlers.Methods())))

	return &Server{
		config:   cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		tracer:   tracer,
		hub:      hub,
		ns:       ns,
		router:   router,
		handler:  handler,
	}, nil
}

func rootBackend(path string) (storage.Backend, error) {
	if path == "" {
		return memory.New(storage.MemoryConfig{}), nil
	}
	return local.New(storage.LocalConfig{RootPath: path, CreateDirs: true})
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Namespace returns the served namespace
func (s *Server) Namespace() *federation.Namespace {
	return s.ns
}

// Hub returns the event hub
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Run serves HTTP until Shutdown is called
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Close releases the namespace and flushes telemetry
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	s.hub.Close()
	err := s.ns.Close()
	if err != nil {
		s.logger.Error("Failed to close namespace", zap.Error(err))
	}
	s.tracer.Close()
	_ = s.logger.Sync()
	return err
}
