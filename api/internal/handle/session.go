package handle

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rock-id/api/internal/ui"
)

// входящее сообщение живой сессии
type sessionIn struct {
	Type    string `json:"type"` // select | identify | clear | view
	Name    string `json:"name,omitempty"`
	DataURI string `json:"dataUri,omitempty"`
}

type sessionOut struct {
	Type  string `json:"type"` // view | toast | error
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(m sessionOut) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(m)
}

// Session ведёт ui.Controller поверх websocket: клиент шлёт действия, сервер пушит снимки View.
func (h *Handle) Session(c *gin.Context) {
	act, err := h.actions.Get(c.Query("llm_name"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(h.upload.MaxSize*2 + 1024)

	w := &wsWriter{conn: conn}
	ctrl := ui.NewController(act, ui.NotifierFunc(func(n ui.Notification) {
		_ = w.send(sessionOut{Type: "toast", Data: n})
	}))

	// при обрыве соединения незавершённый запрос отменяется
	ctx, cancel := context.WithCancel(c.Request.Context())
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	pushView := func() { _ = w.send(sessionOut{Type: "view", Data: ctrl.View()}) }
	ctrl.OnChange(func(v ui.View) { _ = w.send(sessionOut{Type: "view", Data: v}) })
	pushView()

	for {
		var msg sessionIn
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read", zap.Error(err))
			}
			return
		}
		switch msg.Type {
		case "select":
			if err := ctrl.SelectDataURI(msg.Name, msg.DataURI); err != nil {
				_ = w.send(sessionOut{Type: "error", Error: err.Error()})
				continue
			}
			pushView()
		case "identify":
			wg.Add(1)
			go func() {
				defer wg.Done()
				rctx, rcancel := context.WithTimeout(ctx, h.timeout)
				defer rcancel()
				if _, err := ctrl.Submit(rctx); err != nil && !errors.Is(err, ui.ErrNoSelection) {
					_ = w.send(sessionOut{Type: "error", Error: err.Error()})
				}
			}()
		case "clear":
			ctrl.Clear()
			pushView()
		case "view":
			pushView()
		default:
			_ = w.send(sessionOut{Type: "error", Error: "unknown message type " + msg.Type})
		}
	}
}
