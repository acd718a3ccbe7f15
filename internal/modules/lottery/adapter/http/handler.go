// Package http exposes the lottery over a JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/usecase"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/middleware"
	"github.com/samber/lo"
)

const apiVersion = "2.0.0"

// LotteryService is what the handler needs from the use case
type LotteryService interface {
	ConfirmTicketPurchase(ctx context.Context, req usecase.PurchaseConfirmation) (*usecase.PurchaseReceipt, error)
	GetRoundStats(ctx context.Context) domain.RoundStats
	GetHistoricalWinners(ctx context.Context) ([]*domain.HistoricalWinnersRecord, error)
	GetMyTickets(ctx context.Context, address string) (*usecase.MyTickets, error)
	GetParticipants(ctx context.Context) []domain.Participant
	GetPoolWallet(ctx context.Context) (*usecase.PoolWallet, error)
	GetAdminStatus(ctx context.Context) *usecase.AdminStatus
}

// Handler handles HTTP requests for the lottery module
type Handler struct {
	svc      LotteryService
	adminKey string
}

// NewHandler creates a new HTTP handler. An empty adminKey disables the admin routes.
func NewHandler(svc LotteryService, adminKey string) *Handler {
	return &Handler{
		svc:      svc,
		adminKey: adminKey,
	}
}

// RegisterRoutes registers the health, status and lottery routes
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/status", h.Status)
	api.GET("/pool-wallet", h.GetPoolWallet)

	lottery := api.Group("/lottery")
	lottery.GET("/stats", h.GetStats)
	lottery.POST("/confirm-ticket", h.ConfirmTicket)
	lottery.GET("/winners", h.GetWinners)
	lottery.GET("/my-tickets", h.GetMyTickets)
	lottery.GET("/participants", h.GetParticipants)

	admin := lottery.Group("/admin", middleware.AdminKey(h.adminKey))
	admin.GET("/status", h.GetAdminStatus)
}

type confirmTicketRequest struct {
	Address     string `json:"address"`
	TicketCount int64  `json:"ticketCount"`
	TxHash      string `json:"txHash"`
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}

// Status reports the service name and version
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Nikepig Lottery Backend",
		"version":   apiVersion,
		"timestamp": time.Now().UTC(),
	})
}

// GetStats returns the current round summary
func (h *Handler) GetStats(c *gin.Context) {
	stats := h.svc.GetRoundStats(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// ConfirmTicket records tickets paid by an on-chain transaction
func (h *Handler) ConfirmTicket(c *gin.Context) {
	ctx := c.Request.Context()

	var req confirmTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn(ctx).Err(err).Msg("ConfirmTicket: invalid request body")
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.svc.ConfirmTicketPurchase(ctx, usecase.PurchaseConfirmation{
		Address:     req.Address,
		TicketCount: req.TicketCount,
		TxReference: req.TxHash,
	})
	if err != nil {
		code := purchaseStatus(err)
		ev := logger.Warn(ctx)
		if code >= http.StatusInternalServerError {
			ev = logger.Error(ctx)
		}
		ev.Err(err).
			Str("address", req.Address).
			Str("tx_hash", req.TxHash).
			Msg("ConfirmTicket: rejected")
		fail(c, code, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "receipt": receipt})
}

func purchaseStatus(err error) int {
	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSalesClosed), errors.Is(err, domain.ErrDuplicateTransaction):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetWinners returns historical winners, most recent round first
func (h *Handler) GetWinners(c *gin.Context) {
	ctx := c.Request.Context()

	records, err := h.svc.GetHistoricalWinners(ctx)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("GetWinners: failed")
		fail(c, http.StatusInternalServerError, "failed to fetch winners")
		return
	}

	total := lo.SumBy(records, func(r *domain.HistoricalWinnersRecord) int { return len(r.Winners) })
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"currentRound":      h.svc.GetRoundStats(ctx).RoundNumber,
		"historicalWinners": records,
		"totalWinners":      total,
	})
}

// GetMyTickets returns the tickets an address holds in the current round
func (h *Handler) GetMyTickets(c *gin.Context) {
	mine, err := h.svc.GetMyTickets(c.Request.Context(), c.Query("address"))
	if err != nil {
		fail(c, http.StatusBadRequest, "address parameter required")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tickets": mine})
}

// GetParticipants lists the current round participants, most tickets first
func (h *Handler) GetParticipants(c *gin.Context) {
	participants := h.svc.GetParticipants(c.Request.Context())
	sorted := make([]domain.Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TicketCount != sorted[j].TicketCount {
			return sorted[i].TicketCount > sorted[j].TicketCount
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"totalParticipants": len(sorted),
		"totalTickets":      lo.SumBy(sorted, func(p domain.Participant) int64 { return p.TicketCount }),
		"participants":      sorted,
	})
}

// GetPoolWallet returns the pool wallet with its on-chain balance
func (h *Handler) GetPoolWallet(c *gin.Context) {
	ctx := c.Request.Context()

	wallet, err := h.svc.GetPoolWallet(ctx)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("GetPoolWallet: ledger unavailable")
		fail(c, http.StatusBadGateway, "ledger unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "poolWallet": wallet})
}

// GetAdminStatus returns the full driver state
func (h *Handler) GetAdminStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "status": h.svc.GetAdminStatus(c.Request.Context())})
}

func fail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"success": false, "error": msg})
}
