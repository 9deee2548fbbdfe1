package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/folio/internal/interfaces"
)

// KVHandler handles key/value storage HTTP requests (API keys,
// operational toggles). Values are masked in list responses.
type KVHandler struct {
	kv     interfaces.KeyValueStorage
	logger arbor.ILogger
}

// NewKVHandler creates a new KV handler
func NewKVHandler(kv interfaces.KeyValueStorage, logger arbor.ILogger) *KVHandler {
	return &KVHandler{
		kv:     kv,
		logger: logger,
	}
}

// ListKVHandler handles GET /api/kv
func (h *KVHandler) ListKVHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	pairs, err := h.kv.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list key/value pairs")
		WriteError(w, http.StatusInternalServerError, "Failed to list key/value pairs")
		return
	}

	sanitized := make([]map[string]interface{}, len(pairs))
	for i, pair := range pairs {
		sanitized[i] = map[string]interface{}{
			"key":        pair.Key,
			"value":      maskValue(pair.Value),
			"created_at": pair.CreatedAt,
			"updated_at": pair.UpdatedAt,
		}
	}

	WriteJSON(w, http.StatusOK, sanitized)
}

// SetKVHandler handles PUT /api/kv/{key}
func (h *KVHandler) SetKVHandler(w http.ResponseWriter, r *http.Request, encodedKey string) {
	key, err := url.QueryUnescape(encodedKey)
	if err != nil || key == "" {
		WriteError(w, http.StatusBadRequest, "Invalid key")
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Value == "" {
		WriteError(w, http.StatusBadRequest, "value is required")
		return
	}

	if err := h.kv.Set(r.Context(), key, req.Value); err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to set key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to set key/value pair")
		return
	}

	h.logger.Debug().Str("key", key).Msg("Key/value pair stored")
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"key":    key,
	})
}

// DeleteKVHandler handles DELETE /api/kv/{key}
func (h *KVHandler) DeleteKVHandler(w http.ResponseWriter, r *http.Request, encodedKey string) {
	key, err := url.QueryUnescape(encodedKey)
	if err != nil || key == "" {
		WriteError(w, http.StatusBadRequest, "Invalid key")
		return
	}

	if err := h.kv.Delete(r.Context(), key); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Key not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to delete key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to delete key/value pair")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
	})
}

// maskValue hides sensitive values in list responses. Short values are
// fully masked, longer ones keep the first and last four characters.
func maskValue(value string) string {
	if len(value) < 8 {
		return "********"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
