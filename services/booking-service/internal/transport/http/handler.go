package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/hotel-booking/pkg/auth"
	"github.com/you/hotel-booking/services/booking-service/internal/domain"
	"github.com/you/hotel-booking/services/booking-service/internal/service"
)

type Handler struct {
	svc *service.BookingSvc
}

func NewHandler(svc *service.BookingSvc) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	{
		v1.GET("/hotels/search", h.Search)

		secured := v1.Group("")
		secured.Use(auth.JWTAuth())
		{
			secured.POST("/bookings", h.Create)
			secured.GET("/bookings", h.List)
			secured.GET("/bookings/:id", h.Get)
			secured.POST("/bookings/:id/pay", h.Pay)
			secured.POST("/bookings/:id/cancel", h.Cancel)
		}
	}
}

// POST /v1/bookings returns 202 with the booking id; the saga finishes
// asynchronously and callers poll GET /v1/bookings/:id.
func (h *Handler) Create(c *gin.Context) {
	var in struct {
		HotelID    string `json:"hotelId" binding:"required"`
		RoomNumber int    `json:"roomNumber" binding:"required"`
		StartDate  string `json:"startDate" binding:"required"` // RFC3339
		EndDate    string `json:"endDate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse(time.RFC3339, in.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date format"})
		return
	}
	end, err := time.Parse(time.RFC3339, in.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date format"})
		return
	}

	b, err := h.svc.Create(c.Request.Context(), auth.Subject(c), in.HotelID, in.RoomNumber, start, end)
	if err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"booking": b, "message": "booking accepted, poll status for completion"})
}

// GET /v1/bookings/:id
func (h *Handler) Get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		status(c, err)
		return
	}
	if b.UserID != auth.Subject(c) && auth.Role(c) != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": domain.ErrUnauthorized.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /v1/bookings lists the caller's own bookings.
func (h *Handler) List(c *gin.Context) {
	out, err := h.svc.ListByUser(c.Request.Context(), auth.Subject(c))
	if err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out})
}

// POST /v1/bookings/:id/pay
func (h *Handler) Pay(c *gin.Context) {
	if err := h.svc.RequestPayment(c.Request.Context(), auth.Subject(c), c.Param("id")); err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "payment request received"})
}

// POST /v1/bookings/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), auth.Subject(c), c.Param("id")); err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "cancellation request received"})
}

// GET /v1/hotels/search?location=
func (h *Handler) Search(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location is required"})
		return
	}
	out, err := h.svc.SearchHotels(c.Request.Context(), location)
	if err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func status(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDates):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrNotPayable),
		errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrTerminalState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
