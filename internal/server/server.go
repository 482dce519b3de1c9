// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/steadyhq/steady/internal/batch"
	"github.com/steadyhq/steady/internal/config"
	"github.com/steadyhq/steady/internal/events"
	"github.com/steadyhq/steady/internal/features"
	"github.com/steadyhq/steady/internal/logging"
	"github.com/steadyhq/steady/internal/metrics"
	"github.com/steadyhq/steady/internal/missions"
	"github.com/steadyhq/steady/internal/ratelimit"
	"github.com/steadyhq/steady/internal/realtime"
	"github.com/steadyhq/steady/internal/rewards"
	"github.com/steadyhq/steady/internal/risk"
	"github.com/steadyhq/steady/internal/score"
	"github.com/steadyhq/steady/internal/security"
	"github.com/steadyhq/steady/internal/syncutil"
	"github.com/steadyhq/steady/internal/traces"
	"github.com/steadyhq/steady/internal/users"
	"github.com/steadyhq/steady/internal/validation"
	"github.com/steadyhq/steady/internal/wallet"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	usersSvc     *users.Service
	eventsSvc    *events.Service
	scoreSvc     *score.Service
	riskSvc      *risk.Service
	walletSvc    *wallet.Service
	missionsSvc  *missions.Service
	rewardsSvc   *rewards.Service
	realtimeHub  *realtime.Hub
	scheduler    *batch.Scheduler
	rateLimiter  *ratelimit.Limiter
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc         // cancels background goroutines started in Run
	stopTracer   func(context.Context) error

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	// Tracing (no-op when no OTLP endpoint configured)
	stopTracer, err := traces.Init(ctx, cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.stopTracer = stopTracer
	}

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	var (
		usersStore    users.Store
		eventsStore   events.Store
		featuresStore features.Store
		scoreStore    score.Store
		riskStore     risk.Store
		walletStore   wallet.Store
		missionsStore missions.Store
		rewardsStore  rewards.Store
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		usersPG := users.NewPostgresStore(db)
		eventsPG := events.NewPostgresStore(db)
		featuresPG := features.NewPostgresStore(db)
		scorePG := score.NewPostgresStore(db)
		riskPG := risk.NewPostgresStore(db)
		walletPG := wallet.NewPostgresStore(db)
		missionsPG := missions.NewPostgresStore(db)
		rewardsPG := rewards.NewPostgresStore(db)

		for name, m := range map[string]interface {
			Migrate(context.Context) error
		}{
			"users":    usersPG,
			"events":   eventsPG,
			"features": featuresPG,
			"scores":   scorePG,
			"risk":     riskPG,
			"wallet":   walletPG,
			"missions": missionsPG,
			"rewards":  rewardsPG,
		} {
			if err := m.Migrate(ctx); err != nil {
				s.logger.Warn("failed to migrate store", "store", name, "error", err)
			}
		}

		usersStore = usersPG
		eventsStore = eventsPG
		featuresStore = featuresPG
		scoreStore = scorePG
		riskStore = riskPG
		walletStore = walletPG
		missionsStore = missionsPG
		rewardsStore = rewardsPG
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		usersStore = users.NewMemoryStore()
		eventsStore = events.NewMemoryStore()
		featuresStore = features.NewMemoryStore()
		scoreStore = score.NewMemoryStore()
		riskStore = risk.NewMemoryStore()
		walletStore = wallet.NewMemoryStore()
		missionsStore = missions.NewMemoryStore()
		rewardsStore = rewards.NewMemoryStore()
	}

	// Realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)

	// Services
	s.usersSvc = users.NewService(usersStore)
	s.eventsSvc = events.NewService(eventsStore)

	computer := features.NewComputer(s.eventsSvc, s.usersSvc, featuresStore)
	s.scoreSvc = score.NewService(computer, scoreStore, s.eventsSvc, s.logger).
		WithBroadcaster(s.realtimeHub)
	s.riskSvc = risk.NewService(riskStore, s.eventsSvc, s.logger)
	s.walletSvc = wallet.NewServiceWithLocks(walletStore, syncutil.NewShardedMutex())
	s.missionsSvc = missions.NewService(missionsStore, s.eventsSvc, syncutil.NewShardedMutex(), s.logger)
	s.rewardsSvc = rewards.NewService(rewardsStore, s.walletSvc, s.riskSvc, s.eventsSvc, s.logger).
		WithBroadcaster(s.realtimeHub)

	// Seed mission/reward catalogs in demo mode so the API is usable out
	// of the box. Postgres deployments seed via cmd/migrate instead.
	if s.db == nil {
		now := time.Now()
		if err := s.missionsSvc.SeedCatalog(ctx, missions.DefaultCatalog(now)); err != nil {
			s.logger.Warn("failed to seed mission catalog", "error", err)
		}
		if err := s.rewardsSvc.SeedCatalog(ctx, rewards.DefaultCatalog(now)); err != nil {
			s.logger.Warn("failed to seed reward catalog", "error", err)
		}
	}

	// Background jobs
	if !cfg.SchedulerDisabled {
		scoring := batch.NewScoringRun(s.eventsSvc, s.scoreSvc, cfg.ActivityLookback, cfg.ScoringWorkers, s.logger)
		missionJob := batch.NewMissionJob(s.eventsSvc, s.missionsSvc, cfg.ActivityLookback, s.logger)
		s.scheduler = batch.NewScheduler(scoring, missionJob, cfg.ScoringInterval, cfg.MissionInterval, s.logger)
	} else {
		s.logger.Info("background scheduler disabled")
	}

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	rlCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/api", s.infoHandler)

	// WebSocket for real-time streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// V1 API group
	v1 := s.router.Group("/v1")
	// Validate :userId URL params on all v1 routes (no-op when param absent)
	v1.Use(validation.UserIDParamMiddleware())

	users.NewHandler(s.usersSvc).RegisterRoutes(v1)
	events.NewHandler(s.eventsSvc).RegisterRoutes(v1)
	score.NewHandler(s.scoreSvc).RegisterRoutes(v1)
	risk.NewHandler(s.riskSvc).RegisterRoutes(v1)
	wallet.NewHandler(s.walletSvc).RegisterRoutes(v1)
	missions.NewHandler(s.missionsSvc, s.walletSvc).
		WithBroadcaster(s.realtimeHub).
		RegisterRoutes(v1)
	rewards.NewHandler(s.rewardsSvc).RegisterRoutes(v1)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	checks := make(map[string]string)

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "in-memory"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	for _, v := range checks {
		if v == "unhealthy" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Steady",
		"description": "Behavioral reliability scoring and incentive engine",
		"version":     "0.1.0",
		"currency":    wallet.Currency,
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Start background job scheduler
	if s.scheduler != nil {
		go s.scheduler.Start(runCtx)
	}

	// Export DB pool stats
	if s.db != nil {
		metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, scheduler)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop background scheduler
	if s.scheduler != nil {
		s.scheduler.Stop()
		s.logger.Info("scheduler stopped")
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Flush traces
	if s.stopTracer != nil {
		if err := s.stopTracer(ctx); err != nil {
			s.logger.Error("tracer shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
