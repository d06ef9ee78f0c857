package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/service"
)

// RatesHandler handles HTTP requests for the tax and commission rates.
type RatesHandler struct {
	rates *service.RateService
}

// NewRatesHandler creates a new RatesHandler.
func NewRatesHandler(rates *service.RateService) *RatesHandler {
	return &RatesHandler{rates: rates}
}

// UpdateRatesRequest is the HTTP request body for changing the rates.
type UpdateRatesRequest struct {
	TaxRatePct        *decimal.Decimal `json:"taxRatePct"`
	CommissionRatePct *decimal.Decimal `json:"commissionRatePct"`
}

// RatesResponse is the HTTP response for the rates in force.
type RatesResponse struct {
	TaxRatePct        decimal.Decimal `json:"taxRatePct"`
	CommissionRatePct decimal.Decimal `json:"commissionRatePct"`
	UpdatedAt         *time.Time      `json:"updatedAt,omitempty"`
}

func toRatesResponse(r domain.Rates) RatesResponse {
	resp := RatesResponse{TaxRatePct: r.TaxRatePct, CommissionRatePct: r.CommissionRatePct}
	if !r.UpdatedAt.IsZero() {
		resp.UpdatedAt = &r.UpdatedAt
	}
	return resp
}

// Get handles GET /v1/config/rates
func (h *RatesHandler) Get(c *gin.Context) {
	rates, err := h.rates.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"rates": toRatesResponse(rates)})
}

// Update handles PUT /v1/config/rates
func (h *RatesHandler) Update(c *gin.Context) {
	var req UpdateRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.TaxRatePct == nil || req.CommissionRatePct == nil {
		respondBadRequest(c, "taxRatePct and commissionRatePct are required")
		return
	}

	rates, err := h.rates.Update(c.Request.Context(), *req.TaxRatePct, *req.CommissionRatePct)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"rates": toRatesResponse(rates)})
}
