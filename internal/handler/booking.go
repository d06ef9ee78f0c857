package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/middleware"
	"ridebook/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// BookRequest is the HTTP request body for booking a ride.
type BookRequest struct {
	RiderName       string          `json:"riderName"`
	RiderEmail      string          `json:"riderEmail,omitempty"`
	DriverID        int64           `json:"driverId"`
	PickupAddress   string          `json:"pickupAddress"`
	DropoffAddress  string          `json:"dropoffAddress"`
	CategoryName    string          `json:"categoryName"`
	PaymentMethod   string          `json:"paymentMethod"`
	PickupTime      string          `json:"pickupTime"`
	BaseFareDollars decimal.Decimal `json:"baseFareDollars"`
	IdempotencyKey  string          `json:"idempotencyKey,omitempty"`
}

// BookResponse is the HTTP response for a committed booking.
type BookResponse struct {
	OK       bool                `json:"ok"`
	Ride     *domain.RideSummary `json:"ride"`
	Payment  *domain.Payment     `json:"payment"`
	Replayed bool                `json:"replayed"`
}

// Book handles POST /v1/bookings
func (h *BookingHandler) Book(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	pickup, err := service.ParsePickupTime(req.PickupTime)
	if err != nil {
		respondError(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(middleware.IdempotencyHeader))
	if key == "" {
		key = req.IdempotencyKey
	}

	result, err := h.bookingService.Book(c.Request.Context(), service.BookingRequest{
		RiderName:       req.RiderName,
		RiderEmail:      req.RiderEmail,
		DriverID:        req.DriverID,
		PickupAddress:   req.PickupAddress,
		DropoffAddress:  req.DropoffAddress,
		CategoryName:    req.CategoryName,
		PaymentMethod:   req.PaymentMethod,
		PickupTime:      pickup,
		BaseFareDollars: req.BaseFareDollars,
		IdempotencyKey:  key,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, BookResponse{
		OK:       true,
		Ride:     result.Summary,
		Payment:  result.Payment,
		Replayed: result.Replayed,
	})
}
