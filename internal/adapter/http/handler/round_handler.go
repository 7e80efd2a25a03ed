package handler

import (
	"strconv"

	"live-bingo-engine/internal/adapter/http/dto"
	"live-bingo-engine/internal/adapter/http/middleware"
	"live-bingo-engine/internal/core/ports"
	"live-bingo-engine/pkg/apperror"
	"live-bingo-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RoundHandler handles round engine endpoints.
type RoundHandler struct {
	coordinator ports.RoundCoordinator
}

// NewRoundHandler creates a new RoundHandler.
func NewRoundHandler(coordinator ports.RoundCoordinator) *RoundHandler {
	return &RoundHandler{coordinator: coordinator}
}

// currentUserID extracts the authenticated player id set by JWTAuth.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func parseStake(c *gin.Context) (int64, bool) {
	stake, err := strconv.ParseInt(c.Param("stake"), 10, 64)
	if err != nil || stake <= 0 {
		response.Error(c, apperror.Validation("stake must be a positive integer"))
		return 0, false
	}
	return stake, true
}

// Join handles GET /api/v1/rounds/:stake. It returns the current round
// snapshot for the stake tier, opening a fresh round if none exists.
func (h *RoundHandler) Join(c *gin.Context) {
	stake, ok := parseStake(c)
	if !ok {
		return
	}

	snapshot, err := h.coordinator.JoinRound(c.Request.Context(), stake)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, snapshot)
}

// AllocateCard handles POST /api/v1/rounds/:stake/cards.
func (h *RoundHandler) AllocateCard(c *gin.Context) {
	stake, ok := parseStake(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.AllocateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	alloc, err := h.coordinator.AllocateCard(c.Request.Context(), stake, userID, req.CardNumber)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CardResponse{
		RoundID:    alloc.RoundID.String(),
		CardNumber: alloc.CardNumber,
		Grid:       alloc.Grid,
	})
}

// CancelAllocation handles DELETE /api/v1/rounds/:stake/cards/:number.
func (h *RoundHandler) CancelAllocation(c *gin.Context) {
	stake, ok := parseStake(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	cardNumber, err := strconv.Atoi(c.Param("number"))
	if err != nil || cardNumber <= 0 {
		response.Error(c, apperror.Validation("card number must be a positive integer"))
		return
	}

	if err := h.coordinator.CancelAllocation(c.Request.Context(), stake, userID, cardNumber); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"card_number": cardNumber, "refunded": true})
}

// ClaimWin handles POST /api/v1/rounds/:stake/claim.
func (h *RoundHandler) ClaimWin(c *gin.Context) {
	stake, ok := parseStake(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	winner, err := h.coordinator.ClaimWin(c.Request.Context(), stake, userID, req.CardNumber)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WinnerResponse{
		UserID:     winner.UserID.String(),
		CardNumber: winner.CardNumber,
		Pattern:    string(winner.Pattern),
		Prize:      winner.Prize,
	})
}

// History handles GET /api/v1/rounds/history.
func (h *RoundHandler) History(c *gin.Context) {
	response.OK(c, h.coordinator.History(c.Request.Context()))
}
