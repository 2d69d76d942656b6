package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rock-id/api/internal/config"
	"rock-id/api/internal/middleware"
)

// BuildInfo проставляется через -ldflags в cmd/*.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Health проверяет зависимости для /healthz; nil значит «всё в порядке».
type Health func(ctx context.Context) error

// Registrar вешает маршруты API.
type Registrar interface {
	Register(r gin.IRouter)
}

func NewRouter(mode string, log *zap.Logger, api Registrar, info BuildInfo, health Health) *gin.Engine {
	gin.SetMode(mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS())

	r.GET("/healthz", HealthHandler(health))
	r.GET("/version", func(c *gin.Context) { c.JSON(http.StatusOK, info) })

	if api != nil {
		api.Register(r.Group("/api/v1"))
	}
	return r
}

func HealthHandler(health Health) gin.HandlerFunc {
	return func(c *gin.Context) {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				c.String(http.StatusServiceUnavailable, "not ok\n"+err.Error())
				return
			}
		}
		c.String(http.StatusOK, "ok")
	}
}

// Serve слушает addr до отмены ctx, затем аккуратно гасит сервер.
func Serve(ctx context.Context, cfg config.ServerConfig, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.Port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
