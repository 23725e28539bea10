// Package admin exposes the relay's operational HTTP surface: health,
// readiness, metrics and read-only views of sessions, rooms and cookies.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/engine"
	"github.com/frontline-chat/frontline/internal/observability"
)

type Server struct {
	eng     *engine.Engine
	addr    string
	started time.Time
	router  *gin.Engine
}

func New(eng *engine.Engine, addr string, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(eng.Instance()))
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		eng:     eng,
		addr:    addr,
		started: time.Now(),
		router:  r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"uptime":   time.Since(s.started).String(),
			"instance": s.eng.Instance(),
			"role":     string(s.eng.Role()),
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		status := http.StatusOK
		if !s.eng.BackendUp() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":    s.eng.BackendUp(),
			"uptime":   time.Since(s.started).String(),
			"instance": s.eng.Instance(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/sessions", func(c *gin.Context) {
		reg := s.eng.Registry()
		c.JSON(http.StatusOK, gin.H{
			"count":    reg.Len(),
			"capacity": reg.Cap(),
			"sessions": reg.Snapshot(),
		})
	})

	s.router.GET("/rooms", func(c *gin.Context) {
		rooms := s.eng.Rooms()
		c.JSON(http.StatusOK, gin.H{
			"count": rooms.Len(),
			"rooms": rooms.Snapshot(),
		})
	})

	s.router.GET("/cookies", func(c *gin.Context) {
		jar := s.eng.Jar()
		c.JSON(http.StatusOK, gin.H{
			"count":   jar.Len(),
			"cookies": jar.List(),
		})
	})
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Serve blocks until ctx is done or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()
	log.Info().Str("addr", s.addr).Msg("admin server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
