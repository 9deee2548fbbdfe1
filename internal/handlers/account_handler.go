package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// AccountHandler handles investment account HTTP requests
type AccountHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(storage interfaces.StorageManager, logger arbor.ILogger) *AccountHandler {
	return &AccountHandler{
		storage: storage,
		logger:  logger,
	}
}

type positionRequest struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

// CreateAccountHandler handles POST /api/accounts
func (h *AccountHandler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string            `json:"user_id"`
		Name        string            `json:"name"`
		CashBalance *float64          `json:"cash_balance"`
		Positions   []positionRequest `json:"positions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.Name == "" {
		WriteError(w, http.StatusBadRequest, "user_id and name are required")
		return
	}

	if _, err := h.storage.Users().GetUser(r.Context(), req.UserID); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	account := models.NewAccount(req.UserID, req.Name)
	account.CashBalance = req.CashBalance
	for _, pos := range req.Positions {
		if pos.Symbol == "" || pos.Quantity <= 0 {
			WriteError(w, http.StatusBadRequest, "positions require a symbol and a positive quantity")
			return
		}
		account.AddPosition(pos.Symbol, pos.Quantity)
	}

	if err := h.storage.Accounts().SaveAccount(r.Context(), account); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save account")
		WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	h.logger.Info().Str("account_id", account.ID).Str("user_id", req.UserID).Msg("Account created")
	WriteJSON(w, http.StatusCreated, account)
}

// ListAccountsHandler handles GET /api/accounts?user_id={id}
func (h *AccountHandler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		WriteError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	accounts, err := h.storage.Accounts().GetAccountsByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list accounts")
		WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// GetAccountHandler handles GET /api/accounts/{id}
func (h *AccountHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request, accountID string) {
	account, err := h.storage.Accounts().GetAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to get account")
		WriteError(w, http.StatusInternalServerError, "Failed to get account")
		return
	}

	WriteJSON(w, http.StatusOK, account)
}

// AddPositionHandler handles POST /api/accounts/{id}/positions
func (h *AccountHandler) AddPositionHandler(w http.ResponseWriter, r *http.Request, accountID string) {
	account, err := h.storage.Accounts().GetAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Account not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get account")
		return
	}

	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Symbol == "" || req.Quantity <= 0 {
		WriteError(w, http.StatusBadRequest, "symbol and a positive quantity are required")
		return
	}

	account.AddPosition(req.Symbol, req.Quantity)
	if err := h.storage.Accounts().SaveAccount(r.Context(), account); err != nil {
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to save position")
		WriteError(w, http.StatusInternalServerError, "Failed to add position")
		return
	}

	WriteJSON(w, http.StatusCreated, account)
}

// DeleteAccountHandler handles DELETE /api/accounts/{id}
func (h *AccountHandler) DeleteAccountHandler(w http.ResponseWriter, r *http.Request, accountID string) {
	if err := h.storage.Accounts().DeleteAccount(r.Context(), accountID); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to delete account")
		WriteError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Account deleted",
	})
}
