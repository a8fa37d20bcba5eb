package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/hotel-booking/pkg/auth"
	"github.com/you/hotel-booking/services/wallet-service/internal/domain"
	"github.com/you/hotel-booking/services/wallet-service/internal/service"
)

type Handler struct {
	svc *service.WalletSvc
}

func NewHandler(svc *service.WalletSvc) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.Use(auth.JWTAuth())
	{
		v1.POST("/wallet/load", h.LoadMoney)
		v1.GET("/wallet", h.GetWallet)
		v1.POST("/wallet/pay", h.PayForBooking)

		admin := v1.Group("")
		admin.Use(auth.RequireRole(domain.RoleAdmin))
		admin.GET("/wallets", h.ListWallets)
	}
}

// POST /v1/wallet/load
func (h *Handler) LoadMoney(c *gin.Context) {
	var in struct {
		Amount int64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := auth.Role(c)
	if role == "" {
		role = domain.RoleUser
	}
	w, err := h.svc.LoadMoney(c.Request.Context(), auth.Subject(c), in.Amount, role)
	if err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w})
}

// GET /v1/wallet
func (h *Handler) GetWallet(c *gin.Context) {
	w, err := h.svc.GetWallet(c.Request.Context(), auth.Subject(c))
	if err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w, "available": w.Available()})
}

// POST /v1/wallet/pay is the direct-pay settlement, no hold involved.
func (h *Handler) PayForBooking(c *gin.Context) {
	var in struct {
		Amount int64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.PayForBooking(c.Request.Context(), auth.Subject(c), in.Amount); err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment successful"})
}

// GET /v1/wallets (admin)
func (h *Handler) ListWallets(c *gin.Context) {
	ws, err := h.svc.AllWallets(c.Request.Context())
	if err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallets": ws})
}

func status(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrDuplicateHold):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
