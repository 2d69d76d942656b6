package handle

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rock-id/api/internal/action"
	"rock-id/api/internal/flow"
	"rock-id/api/internal/util"
)

type IdentifyRequest struct {
	LLMName string `json:"llm_name"`
	flow.IdentifyInput
}

// jsonOverhead: поля запроса и префикс data URI сверх base64 самой картинки.
const jsonOverhead = 64 << 10

// jsonLimit: upload.max_size после base64 плюс jsonOverhead.
func (h *Handle) jsonLimit() int64 {
	return (h.upload.MaxSize+2)/3*4 + jsonOverhead
}

// Identify принимает data URI в JSON. Исход всегда отдаётся с 200.
func (h *Handle) Identify(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.jsonLimit())

	var req IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("image is larger than %d MB", h.upload.MaxSize/(1024*1024)))
			return
		}
		writeError(c, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	act, err := h.actions.Get(req.LLMName)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	h.identify(c, act, req.PhotoDataURI)
}

// IdentifyUpload принимает multipart-файл в поле "image".
func (h *Handle) IdentifyUpload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		writeError(c, http.StatusBadRequest, "image file is required: "+err.Error())
		return
	}
	if file.Size > h.upload.MaxSize {
		writeError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file is larger than %d MB", h.upload.MaxSize/(1024*1024)))
		return
	}
	act, err := h.actions.Get(c.PostForm("llm_name"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	f, err := file.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "cannot open upload: "+err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.upload.MaxSize+1))
	if err != nil {
		writeError(c, http.StatusBadRequest, "cannot read upload: "+err.Error())
		return
	}

	mime := util.PickMIME("", file.Header.Get("Content-Type"), data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if !h.allowedType(mime) {
		writeError(c, http.StatusUnsupportedMediaType, "unsupported image type "+mime)
		return
	}

	h.log.Info("image uploaded",
		zap.String("filename", file.Filename),
		zap.String("mime", mime),
		zap.Int64("size", file.Size))

	h.identify(c, act, util.DataURI{MIME: mime, Data: data}.String())
}

func (h *Handle) identify(c *gin.Context, act *action.Action, dataURI string) {
	ctx, cancel := h.deadline(c)
	defer cancel()

	out := act.IdentifyRock(ctx, dataURI)
	if out.RecordID != "" {
		c.Header("X-Identification-ID", out.RecordID)
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handle) allowedType(mime string) bool {
	if len(h.upload.AllowedTypes) == 0 {
		return strings.HasPrefix(mime, "image/")
	}
	for _, t := range h.upload.AllowedTypes {
		if strings.EqualFold(t, mime) {
			return true
		}
	}
	return false
}
