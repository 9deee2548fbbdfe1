package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// UserHandler handles user profile HTTP requests
type UserHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewUserHandler creates a new user handler
func NewUserHandler(storage interfaces.StorageManager, logger arbor.ILogger) *UserHandler {
	return &UserHandler{
		storage: storage,
		logger:  logger,
	}
}

// CreateUserHandler handles POST /api/users
func (h *UserHandler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName            string  `json:"display_name"`
		YearsUntilRetirement   int     `json:"years_until_retirement"`
		TargetRetirementIncome float64 `json:"target_retirement_income"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.DisplayName == "" {
		WriteError(w, http.StatusBadRequest, "display_name is required")
		return
	}
	if req.YearsUntilRetirement < 0 {
		WriteError(w, http.StatusBadRequest, "years_until_retirement cannot be negative")
		return
	}

	user := models.NewUser(req.DisplayName)
	user.YearsUntilRetirement = req.YearsUntilRetirement
	user.TargetRetirementIncome = req.TargetRetirementIncome

	if err := h.storage.Users().SaveUser(r.Context(), user); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save user")
		WriteError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	h.logger.Info().Str("user_id", user.ID).Msg("User created")
	WriteJSON(w, http.StatusCreated, user)
}

// ListUsersHandler handles GET /api/users
func (h *UserHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.storage.Users().ListUsers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list users")
		WriteError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// GetUserHandler handles GET /api/users/{id}
func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := h.storage.Users().GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to get user")
		WriteError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	WriteJSON(w, http.StatusOK, user)
}

// UpdateUserHandler handles PUT /api/users/{id}
func (h *UserHandler) UpdateUserHandler(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := h.storage.Users().GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	var req struct {
		DisplayName            *string  `json:"display_name"`
		YearsUntilRetirement   *int     `json:"years_until_retirement"`
		TargetRetirementIncome *float64 `json:"target_retirement_income"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.YearsUntilRetirement != nil {
		if *req.YearsUntilRetirement < 0 {
			WriteError(w, http.StatusBadRequest, "years_until_retirement cannot be negative")
			return
		}
		user.YearsUntilRetirement = *req.YearsUntilRetirement
	}
	if req.TargetRetirementIncome != nil {
		user.TargetRetirementIncome = *req.TargetRetirementIncome
	}

	if err := h.storage.Users().SaveUser(r.Context(), user); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update user")
		WriteError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	WriteJSON(w, http.StatusOK, user)
}

// DeleteUserHandler handles DELETE /api/users/{id}
func (h *UserHandler) DeleteUserHandler(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.storage.Users().DeleteUser(r.Context(), userID); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to delete user")
		WriteError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "User deleted",
	})
}
