package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type MatchRequest struct {
	LLMName        string `json:"llm_name"`
	ImageAnalysis  string `json:"imageAnalysis"`
	IdentifiedRock string `json:"identifiedRock"`
}

func (h *Handle) Match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}
	act, err := h.actions.Get(req.LLMName)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := h.deadline(c)
	defer cancel()
	c.JSON(http.StatusOK, act.ScoreMatch(ctx, req.ImageAnalysis, req.IdentifiedRock))
}
