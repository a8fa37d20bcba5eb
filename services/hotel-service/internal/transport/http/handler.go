package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/you/hotel-booking/pkg/auth"
	"github.com/you/hotel-booking/services/hotel-service/internal/domain"
	"github.com/you/hotel-booking/services/hotel-service/internal/service"
)

type Handler struct {
	svc *service.HotelSvc
}

func NewHandler(svc *service.HotelSvc) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	{
		v1.GET("/hotels", h.List)
		v1.GET("/hotels/search", h.Search)
		v1.GET("/hotels/:id", h.Get)
		v1.GET("/hotels/:id/rooms/:roomNumber/price", h.RoomPrice)

		v1.POST("/hotels/seed", auth.JWTAuth(), auth.RequireRole("admin"), h.Seed)
	}
}

// GET /v1/hotels
func (h *Handler) List(c *gin.Context) {
	hotels, err := h.svc.AllHotels(c.Request.Context())
	if err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotels": hotels})
}

// GET /v1/hotels/search?location=
func (h *Handler) Search(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location is required"})
		return
	}
	hotels, err := h.svc.SearchHotels(c.Request.Context(), location)
	if err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": hotels})
}

// GET /v1/hotels/:id
func (h *Handler) Get(c *gin.Context) {
	hotel, err := h.svc.HotelByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusOK, hotel)
}

// GET /v1/hotels/:id/rooms/:roomNumber/price
func (h *Handler) RoomPrice(c *gin.Context) {
	roomNumber, err := strconv.Atoi(c.Param("roomNumber"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room number"})
		return
	}
	price, err := h.svc.RoomPrice(c.Request.Context(), c.Param("id"), roomNumber)
	if err != nil {
		status(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": price})
}

// POST /v1/hotels/seed (admin)
func (h *Handler) Seed(c *gin.Context) {
	hotels, err := h.svc.SeedHotels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"hotels": hotels})
}

func status(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrHotelNotFound), errors.Is(err, domain.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
