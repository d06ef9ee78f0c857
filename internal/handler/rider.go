package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridebook/internal/service"
)

// RiderHandler handles HTTP requests for riders.
type RiderHandler struct {
	directory *service.DirectoryService
}

// NewRiderHandler creates a new RiderHandler.
func NewRiderHandler(directory *service.DirectoryService) *RiderHandler {
	return &RiderHandler{directory: directory}
}

// RiderResponse is the HTTP response for rider data.
type RiderResponse struct {
	ID        int64     `json:"person_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GetAll handles GET /v1/riders
func (h *RiderHandler) GetAll(c *gin.Context) {
	people, err := h.directory.ListRiders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RiderResponse, 0, len(people))
	for _, p := range people {
		response = append(response, RiderResponse{
			ID:        p.ID,
			Name:      p.Name,
			Email:     p.Email,
			Phone:     p.Phone,
			CreatedAt: p.CreatedAt,
		})
	}

	respondJSON(c, http.StatusOK, gin.H{"riders": response})
}
