// Package api serves the dex over HTTP. Reads run against the latest
// committed sandbox state; writes are executed as sandbox blocks on behalf of
// the authenticated user.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"cosmossdk.io/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/paw-chain/pawdex/pkg/sandbox"
)

// Server represents the API server
type Server struct {
	router      *gin.Engine
	handler     http.Handler
	config      *Config
	sandbox     *sandbox.Sandbox
	authService *AuthService
	limiter     *IPRateLimiter
	logger      log.Logger
}

// Config holds server configuration
type Config struct {
	Host            string
	Port            string
	JWTSecret       []byte
	TokenTTL        time.Duration
	CORSOrigins     []string
	RateLimitRPS    int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            "8080",
		TokenTTL:        24 * time.Hour,
		CORSOrigins:     []string{"http://localhost:3000"},
		RateLimitRPS:    100,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate checks the configuration before the server is built.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("jwt secret must be at least 16 bytes")
	}
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimitRPS)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	}
	return nil
}

// NewServer creates a new API server over sb.
func NewServer(sb *sandbox.Sandbox, config *Config, logger log.Logger) (*Server, error) {
	if sb == nil {
		return nil, errors.New("sandbox is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid api config: %w", err)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:      config,
		sandbox:     sb,
		authService: NewAuthService(config.JWTSecret, config.TokenTTL),
		limiter:     NewIPRateLimiter(config.RateLimitRPS),
		logger:      logger.With("module", "api"),
	}
	s.setupRouter()
	return s, nil
}

// setupRouter configures the Gin router with all routes and middleware
func (s *Server) setupRouter() {
	router := gin.New()

	router.Use(RecoveryMiddleware(s.logger))
	router.Use(SecurityHeadersMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(s.logger))
	router.Use(s.RateLimitMiddleware())

	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router = router
	s.registerRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	})
	s.handler = handlers.CompressHandler(c.Handler(router))
}

// Handler returns the root HTTP handler including CORS and gzip.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Height:    s.sandbox.Height(),
		Policy:    s.sandbox.Keeper().Policy().String(),
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, s.config.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting api server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return <-errCh
}
