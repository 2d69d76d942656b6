package handle

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rock-id/api/internal/store"
)

func (h *Handle) GetIdentification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "bad id")
		return
	}
	rec, err := h.history.Get(c.Request.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(c, http.StatusNotFound, "identification not found")
			return
		}
		h.log.Error("failed to load identification", zap.String("id", id.String()), zap.Error(err))
		writeError(c, http.StatusInternalServerError, "failed to load identification")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handle) ListIdentifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	recs, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("failed to list identifications", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "failed to list identifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs})
}

func (h *Handle) Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"specimens": h.catalog.Specimens()})
}
