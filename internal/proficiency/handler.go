package proficiency

import (
	"encoding/json"
	"net/http"

	"github.com/pinpoint-prep/backend/internal/logger"
	"github.com/pinpoint-prep/backend/internal/middleware"
	"github.com/pinpoint-prep/backend/internal/models"
)

type Handler struct {
	store *Store
	log   logger.Logger
}

func NewHandler(store *Store, log logger.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// GetProficiency handles GET /proficiency.
func (h *Handler) GetProficiency(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	p, err := h.store.ReadEstimates(r.Context(), userID)
	if err != nil {
		h.log.Error(r.Context(), "read proficiency", logger.Int64("user_id", userID), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load proficiency"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
