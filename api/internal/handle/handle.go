package handle

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rock-id/api/internal/action"
	"rock-id/api/internal/catalog"
	"rock-id/api/internal/config"
	"rock-id/api/internal/store"
)

type Handle struct {
	actions    *action.Set
	history    *store.History
	catalog    *catalog.Catalog
	upload     config.UploadConfig
	timeout    time.Duration
	// maxTimeout: потолок для X-Request-Timeout, дольше ответ всё равно не уйдёт
	maxTimeout time.Duration
	log        *zap.Logger
	upgrader   websocket.Upgrader
}

func New(actions *action.Set, history *store.History, cat *catalog.Catalog, cfg *config.Config, log *zap.Logger) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	if history == nil {
		history = store.NewHistory(nil, nil, log)
	}
	if cat == nil {
		cat = catalog.Default()
	}
	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	maxTimeout := cfg.Server.WriteTimeout
	if maxTimeout <= 0 {
		maxTimeout = maxRequestTimeout
	}
	return &Handle{
		actions:    actions,
		history:    history,
		catalog:    cat,
		upload:     cfg.Upload,
		timeout:    timeout,
		maxTimeout: maxTimeout,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Register вешает маршруты API на группу /api/v1.
func (h *Handle) Register(r gin.IRouter) {
	r.POST("/identify", h.Identify)
	r.POST("/identify/upload", h.IdentifyUpload)
	r.POST("/match", h.Match)
	r.GET("/identifications", h.ListIdentifications)
	r.GET("/identifications/:id", h.GetIdentification)
	r.GET("/catalog", h.Catalog)
	r.GET("/engines", h.Engines)
	r.GET("/ws", h.Session)
}

func writeError(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"error": msg})
}

// maxRequestTimeout, если у сервера не задан write_timeout.
const maxRequestTimeout = 10 * time.Minute

// deadline: X-Request-Timeout (сек) или ?timeoutSec=, иначе значение из конфига.
// Запрошенное время не превышает maxTimeout.
func (h *Handle) deadline(c *gin.Context) (context.Context, context.CancelFunc) {
	d := h.timeout
	ts := c.GetHeader("X-Request-Timeout")
	if ts == "" {
		ts = c.Query("timeoutSec")
	}
	if ts != "" {
		if v, _ := strconv.ParseInt(ts, 10, 64); v > 0 {
			if v > int64(h.maxTimeout/time.Second) {
				d = h.maxTimeout
			} else {
				d = time.Duration(v) * time.Second
			}
		}
	}
	return context.WithTimeout(c.Request.Context(), d)
}

func (h *Handle) Engines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"engines": h.actions.Available()})
}
