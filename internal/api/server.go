package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quantfuse/quantfuse/internal/metrics"
	"github.com/quantfuse/quantfuse/internal/portfolio"
	"github.com/quantfuse/quantfuse/internal/risk"
	"github.com/quantfuse/quantfuse/internal/router"
	"github.com/quantfuse/quantfuse/internal/weights"
)

// Server is the REST surface over the decision-fusion engine.
type Server struct {
	router     *gin.Engine
	addr       string
	server     *http.Server
	assets     *router.Router
	aggregator *portfolio.Aggregator
	killSwitch *risk.KillSwitch
	tracker    *weights.Tracker
}

// Config contains server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigins []string

	Assets     *router.Router
	Aggregator *portfolio.Aggregator
	KillSwitch *risk.KillSwitch
	Tracker    *weights.Tracker
}

// NewServer creates a new API server.
func NewServer(config Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestIDMiddleware())
	engine.Use(LoggerMiddleware())

	origins := config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		router:     engine,
		addr:       fmt.Sprintf("%s:%d", config.Host, config.Port),
		assets:     config.Assets,
		aggregator: config.Aggregator,
		killSwitch: config.KillSwitch,
		tracker:    config.Tracker,
	}
	s.setupRoutes()
	return s
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping API server")
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
	}
	return nil
}

// Handler exposes the gin engine for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RequestIDMiddleware tags every request with a request ID, honoring a
// caller-supplied one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggerMiddleware logs and instruments every request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		metrics.RecordAPIRequest(method, path, strconv.Itoa(statusCode), float64(latency.Milliseconds()))

		logEvent := log.Info()
		if statusCode >= http.StatusInternalServerError {
			logEvent = log.Error()
		} else if statusCode >= http.StatusBadRequest {
			logEvent = log.Warn()
		}
		logEvent.
			Str("method", method).
			Str("path", path).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString("request_id")).
			Msg("API request")
	}
}
