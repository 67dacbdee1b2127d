package game

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes the engine's inbound operations over HTTP for the
// command dispatcher. Parsing stays thin: every route binds a small JSON
// body and relays the CommandResult.
type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	commands := r.Group("/commands")
	commands.POST("/start", h.startHandler)
	commands.POST("/stop", h.stopHandler)
	commands.POST("/answer", h.answerHandler)
	commands.POST("/configure", h.configureHandler)
	commands.POST("/reset-config", h.resetConfigHandler)
	commands.POST("/clear-leaderboard", h.clearLeaderboardHandler)
	commands.POST("/report", h.reportHandler)
	commands.POST("/report-round", h.reportRoundHandler)
}

func relay(ctx *gin.Context, result CommandResult) {
	ctx.JSON(http.StatusOK, gin.H{"success": result.Success, "message": result.Message})
}

func badRequest(ctx *gin.Context) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-request"})
}

func (h *Handler) startHandler(ctx *gin.Context) {
	var req struct {
		Channel   string `json:"channel" binding:"required"`
		Topic     string `json:"topic"`
		Initiator string `json:"initiator" binding:"required"`
		Rounds    int    `json:"rounds"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	relay(ctx, h.engine.StartGame(req.Channel, req.Topic, req.Initiator, req.Rounds))
}

func (h *Handler) stopHandler(ctx *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	relay(ctx, h.engine.StopGame(req.Channel))
}

func (h *Handler) answerHandler(ctx *gin.Context) {
	var req struct {
		Channel     string `json:"channel" binding:"required"`
		User        string `json:"user" binding:"required"`
		DisplayName string `json:"display_name"`
		Text        string `json:"text" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.User
	}
	relay(ctx, h.engine.ProcessPotentialAnswer(ctx.Request.Context(), req.Channel, req.User, req.DisplayName, req.Text))
}

func (h *Handler) configureHandler(ctx *gin.Context) {
	var req struct {
		Channel string            `json:"channel" binding:"required"`
		Options map[string]string `json:"options" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	relay(ctx, h.engine.ConfigureGame(req.Channel, req.Options))
}

func (h *Handler) resetConfigHandler(ctx *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	relay(ctx, h.engine.ResetChannelConfig(req.Channel))
}

func (h *Handler) clearLeaderboardHandler(ctx *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	relay(ctx, h.engine.ClearLeaderboard(req.Channel))
}

func (h *Handler) reportHandler(ctx *gin.Context) {
	var req struct {
		Channel  string `json:"channel" binding:"required"`
		Reason   string `json:"reason" binding:"required"`
		Reporter string `json:"reporter" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	relay(ctx, h.engine.InitiateReportProcess(ctx.Request.Context(), req.Channel, req.Reason, req.Reporter))
}

func (h *Handler) reportRoundHandler(ctx *gin.Context) {
	var req struct {
		Channel  string `json:"channel" binding:"required"`
		Reporter string `json:"reporter" binding:"required"`
		Round    string `json:"round" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	relay(ctx, h.engine.FinalizeReportWithRoundNumber(ctx.Request.Context(), req.Channel, req.Reporter, req.Round))
}
