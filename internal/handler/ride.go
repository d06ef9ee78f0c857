package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ridebook/internal/domain"
	"ridebook/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	directory  *service.DirectoryService
	settlement *service.SettlementService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(directory *service.DirectoryService, settlement *service.SettlementService) *RideHandler {
	return &RideHandler{
		directory:  directory,
		settlement: settlement,
	}
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	filter := domain.RideFilter{
		Rider:    c.Query("rider"),
		Driver:   c.Query("driver"),
		Category: c.Query("category"),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			respondBadRequest(c, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	rides, err := h.directory.RecentRides(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if rides == nil {
		rides = []*domain.RideSummary{}
	}

	respondJSON(c, http.StatusOK, gin.H{"rides": rides})
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	rideID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	ride, err := h.directory.GetRide(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"ride": ride})
}

// LedgerEntryResponse is the HTTP response for one ledger entry.
type LedgerEntryResponse struct {
	ID          int64     `json:"entry_id"`
	PaymentID   int64     `json:"payment_id"`
	AccountID   int64     `json:"account_id"`
	AmountCents int64     `json:"amount_cents"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetLedger handles GET /v1/rides/:id/ledger
func (h *RideHandler) GetLedger(c *gin.Context) {
	rideID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	entries, err := h.directory.RideLedger(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, LedgerEntryResponse{
			ID:          e.ID,
			PaymentID:   e.PaymentID,
			AccountID:   e.AccountID,
			AmountCents: e.AmountCents,
			Type:        string(e.Type),
			CreatedAt:   e.CreatedAt,
		})
	}

	respondJSON(c, http.StatusOK, gin.H{"ride_id": rideID, "entries": response})
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	rideID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	ride, err := h.settlement.CompleteRide(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"ride": ride})
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	rideID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	ride, err := h.settlement.CancelRide(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"ride": ride})
}
