package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/cache"
	"github.com/aman-churiwal/eligibility-engine/internal/circuitbreaker"
	"github.com/aman-churiwal/eligibility-engine/internal/config"
	"github.com/aman-churiwal/eligibility-engine/internal/handler"
	"github.com/aman-churiwal/eligibility-engine/internal/healthcheck"
	"github.com/aman-churiwal/eligibility-engine/internal/metrics"
	"github.com/aman-churiwal/eligibility-engine/internal/middleware"
	"github.com/aman-churiwal/eligibility-engine/internal/ratelimit"
	"github.com/aman-churiwal/eligibility-engine/internal/repository"
	"github.com/aman-churiwal/eligibility-engine/internal/service"
	"github.com/aman-churiwal/eligibility-engine/internal/storage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"
)

// Everything the server needs from the process bootstrap
type Dependencies struct {
	DB       *storage.Database
	Redis    *storage.RedisClient // nil when redis is disabled
	Clock    service.Clock
	Location *time.Location
	Metrics  *metrics.Metrics
}

type Server struct {
	router     *gin.Engine
	config     *config.Config
	deps       Dependencies
	health     *healthcheck.Checker
	httpServer *http.Server

	eligibilityHandler *handler.EligibilityHandler
	policyHandler      *handler.PolicyHandler
	userHandler        *handler.UserHandler
	authHandler        *handler.AuthHandler
	systemHandler      *handler.SystemHandler
	authService        *service.AuthService
	limiter            ratelimit.Limiter
}

func New(cfg *config.Config, deps Dependencies) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	s := &Server{
		router: gin.New(),
		config: cfg,
		deps:   deps,
	}

	s.initializeServices()
	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) initializeServices() {
	db := s.deps.DB
	respond := handler.Responder{Development: s.config.IsDevelopment()}

	userRepo := repository.NewUserRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	actionRepo := repository.NewActionRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	var policyCache service.PolicyCache
	if s.deps.Redis != nil {
		policyCache = cache.NewPolicyCache(s.deps.Redis, s.config.PolicyCache.TTL)
	}

	m := s.deps.Metrics
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:        "eligibility-storage",
		MaxFailures: s.config.Breaker.MaxFailures,
		Cooldown:    s.config.Breaker.Cooldown,
		OnStateChange: func(name string, _, to circuitbreaker.State) {
			m.SetBreakerState(name, to)
		},
	})
	m.SetBreakerState("eligibility-storage", breaker.State())

	policyService := service.NewPolicyService(policyRepo, policyCache)
	checker := service.NewEligibilityService(policyService, actionRepo, service.EligibilityOptions{
		Clock:        s.deps.Clock,
		Location:     s.deps.Location,
		QueryTimeout: s.config.Database.QueryTimeout,
		Breaker:      breaker,
	})
	recorder := service.NewActionService(db, userRepo, actionRepo, s.deps.Clock)
	history := service.NewHistoryService(actionRepo, s.deps.Clock)
	s.authService = service.NewAuthService(adminRepo, s.config.Auth.JWTSecret, s.config.Auth.JWTExpiry)

	s.eligibilityHandler = handler.NewEligibilityHandler(checker, recorder, history, m, respond)
	s.policyHandler = handler.NewPolicyHandler(policyService, respond)
	s.userHandler = handler.NewUserHandler(service.NewUserService(userRepo), respond)
	s.authHandler = handler.NewAuthHandler(s.authService, respond)

	probes := []healthcheck.Probe{
		{Name: "database", Critical: true, Check: db.Ping},
	}
	if s.deps.Redis != nil {
		probes = append(probes, healthcheck.Probe{Name: "redis", Check: s.deps.Redis.Ping})
	}
	s.health = healthcheck.NewChecker(healthcheck.Config{
		Interval: s.config.Health.Interval,
		Timeout:  s.config.Health.Timeout,
	}, probes...)
	s.systemHandler = handler.NewSystemHandler(s.health, breaker)

	s.limiter = ratelimit.NewLimiter(s.deps.Redis, s.config.Throttle.RequestsPerMinute, time.Minute)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Metrics(s.deps.Metrics))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.systemHandler.Health)
	s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))

	api := s.router.Group("/")
	if s.config.Throttle.Enabled && s.config.Throttle.RequestsPerMinute > 0 {
		api.Use(middleware.Throttle(s.limiter, s.deps.Metrics))
	}

	eligibility := api.Group("/eligibility")
	{
		eligibility.POST("/check", s.eligibilityHandler.Check)
		eligibility.POST("/record", s.eligibilityHandler.Record)
		eligibility.GET("/history/:userId", s.eligibilityHandler.History)
	}

	users := api.Group("/users")
	{
		users.POST("", s.userHandler.Create)
		users.GET("/:id", s.userHandler.Get)
	}

	operator := api.Group("/")
	if s.config.Auth.Enabled {
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.authHandler.Register)
			auth.POST("/login", s.authHandler.Login)
		}
		operator.Use(middleware.RequireAuth(s.authService))
	}

	policies := operator.Group("/policies")
	{
		policies.POST("", s.policyHandler.Create)
		policies.GET("", s.policyHandler.List)
		policies.GET("/:id", s.policyHandler.Get)
		policies.PUT("/:id", s.policyHandler.Update)
		policies.DELETE("/:id", s.policyHandler.Delete)
		policies.POST("/:id/deactivate", s.policyHandler.Deactivate)
	}

	system := operator.Group("/system")
	{
		system.GET("/breaker", s.systemHandler.CircuitBreakerStatus)
		system.POST("/breaker/reset", s.systemHandler.ResetCircuitBreaker)
	}
}

// Run listens on addr and serves until Shutdown is called
func (s *Server) Run(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if s.config.Server.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.config.Server.MaxConnections)
	}

	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.health.Start()

	log.WithFields(log.Fields{
		"addr":            listener.Addr().String(),
		"environment":     s.config.Server.Environment,
		"max_connections": s.config.Server.MaxConnections,
		"auth":            s.config.Auth.Enabled,
		"redis":           s.deps.Redis != nil,
	}).Info("starting eligibility engine")

	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("shutting down server")
	s.health.Stop()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
