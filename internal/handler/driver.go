package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebook/internal/domain"
	"ridebook/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	directory  *service.DirectoryService
	settlement *service.SettlementService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(directory *service.DirectoryService, settlement *service.SettlementService) *DriverHandler {
	return &DriverHandler{
		directory:  directory,
		settlement: settlement,
	}
}

// RegisterDriverRequest is the HTTP request body for driver registration.
type RegisterDriverRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// DriverResponse is the HTTP response for driver data.
type DriverResponse struct {
	ID        int64  `json:"driver_id"`
	PersonID  int64  `json:"person_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Available bool   `json:"available"`
}

func toDriverResponse(d *domain.Driver) DriverResponse {
	return DriverResponse{
		ID:        d.ID,
		PersonID:  d.PersonID,
		Name:      d.Name,
		Email:     d.Email,
		Available: d.Available,
	}
}

// Register handles POST /v1/drivers
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	driver, err := h.directory.RegisterDriver(c.Request.Context(), service.RegisterDriverRequest{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{"driver": toDriverResponse(driver)})
}

// GetAll handles GET /v1/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	onlyAvailable := c.Query("available") == "true" || c.Query("available") == "1"

	drivers, err := h.directory.ListDrivers(c.Request.Context(), onlyAvailable)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DriverResponse, 0, len(drivers))
	for _, d := range drivers {
		response = append(response, toDriverResponse(d))
	}

	respondJSON(c, http.StatusOK, gin.H{"drivers": response})
}

// Payout handles POST /v1/drivers/:id/payout
func (h *DriverHandler) Payout(c *gin.Context) {
	driverID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	payout, err := h.settlement.PayDriver(c.Request.Context(), driverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"payout": payout})
}
