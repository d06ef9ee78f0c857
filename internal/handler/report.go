package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebook/internal/service"
)

// ReportHandler handles HTTP requests for ledger reports. Every report takes
// optional start and end dates as YYYY-MM-DD; end is inclusive.
type ReportHandler struct {
	ledger *service.LedgerService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(ledger *service.LedgerService) *ReportHandler {
	return &ReportHandler{ledger: ledger}
}

// Commission handles GET /v1/reports/commission
func (h *ReportHandler) Commission(c *gin.Context) {
	r, err := service.ParseDateRange(c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, err)
		return
	}

	rows, err := h.ledger.CommissionByDayCategory(c.Request.Context(), r)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"rows": rows})
}

// RidesPerDriver handles GET /v1/reports/rides-per-driver
func (h *ReportHandler) RidesPerDriver(c *gin.Context) {
	r, err := service.ParseDateRange(c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, err)
		return
	}

	rows, err := h.ledger.RidesPerDriverPerDay(c.Request.Context(), r)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"rows": rows})
}

// OutstandingPayouts handles GET /v1/reports/outstanding-payouts
func (h *ReportHandler) OutstandingPayouts(c *gin.Context) {
	r, err := service.ParseDateRange(c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, err)
		return
	}

	rows, err := h.ledger.OutstandingPayouts(c.Request.Context(), r)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"rows": rows})
}
