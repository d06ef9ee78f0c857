package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ridebook/internal/domain"
	"ridebook/internal/service"
)

// BankAccountHandler handles HTTP requests for bank accounts.
type BankAccountHandler struct {
	directory *service.DirectoryService
}

// NewBankAccountHandler creates a new BankAccountHandler.
func NewBankAccountHandler(directory *service.DirectoryService) *BankAccountHandler {
	return &BankAccountHandler{directory: directory}
}

// CreateBankAccountRequest is the HTTP request body for opening a bank account.
type CreateBankAccountRequest struct {
	PersonName     string          `json:"personName"`
	BankNum        string          `json:"bankNum"`
	BalanceDollars decimal.Decimal `json:"balanceDollars"`
	Currency       string          `json:"currency,omitempty"`
}

// BankAccountResponse is the HTTP response for bank account data.
type BankAccountResponse struct {
	ID           int64  `json:"account_id"`
	PersonID     int64  `json:"person_id"`
	BankNum      string `json:"bank_num"`
	BalanceCents int64  `json:"balance_cents"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

func toBankAccountResponse(a *domain.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:           a.ID,
		PersonID:     a.PersonID,
		BankNum:      a.BankNum,
		BalanceCents: a.BalanceCents,
		Currency:     a.Currency,
		Status:       string(a.Status),
	}
}

// GetAll handles GET /v1/bank-accounts
func (h *BankAccountHandler) GetAll(c *gin.Context) {
	personID, err := strconv.ParseInt(c.Query("person_id"), 10, 64)
	if err != nil {
		respondError(c, service.ErrInvalidID)
		return
	}

	accounts, err := h.directory.ListBankAccounts(c.Request.Context(), personID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]BankAccountResponse, 0, len(accounts))
	for _, a := range accounts {
		response = append(response, toBankAccountResponse(a))
	}

	respondJSON(c, http.StatusOK, gin.H{"accounts": response})
}

// GetByID handles GET /v1/bank-accounts/:id
func (h *BankAccountHandler) GetByID(c *gin.Context) {
	accountID, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	account, err := h.directory.GetBankAccount(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"account": toBankAccountResponse(account)})
}

// Create handles POST /v1/bank-accounts
func (h *BankAccountHandler) Create(c *gin.Context) {
	var req CreateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	account, created, err := h.directory.CreateBankAccount(c.Request.Context(), service.CreateAccountRequest{
		PersonName:     req.PersonName,
		BankNum:        req.BankNum,
		Currency:       req.Currency,
		BalanceDollars: req.BalanceDollars,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(c, status, gin.H{"account": toBankAccountResponse(account), "created": created})
}
