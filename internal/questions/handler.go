package questions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/pinpoint-prep/backend/internal/logger"
	"github.com/pinpoint-prep/backend/internal/middleware"
	"github.com/pinpoint-prep/backend/internal/models"
)

const maxReasonLength = 1000

type Handler struct {
	store *Store
	log   logger.Logger
}

func NewHandler(store *Store, log logger.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// ReportQuestion handles POST /questions/{id}/report.
func (h *Handler) ReportQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	questionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || questionID <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question ID"})
		return
	}

	var req models.ReportQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "reason is required"})
		return
	}
	if len(req.Reason) > maxReasonLength {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "reason is too long"})
		return
	}

	report, err := h.store.ReportQuestion(r.Context(), userID, questionID, req.Reason)
	if err != nil {
		if errors.Is(err, ErrQuestionNotFound) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
			return
		}
		h.log.Error(r.Context(), "report question", logger.Int64("question_id", questionID), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to save report"})
		return
	}

	h.log.Info(r.Context(), "question reported",
		logger.Int64("question_id", questionID), logger.Int64("user_id", userID))
	writeJSON(w, http.StatusCreated, models.ReportQuestionResponse{
		ReportID: report.ID,
		Message:  "Thanks, we'll take a look at this question.",
	})
}

// ListReports handles GET /questions/{id}/reports, returning the caller's own
// reports on the question.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	questionID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || questionID <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question ID"})
		return
	}

	reports, err := h.store.ListReports(r.Context(), userID, questionID)
	if err != nil {
		if errors.Is(err, ErrQuestionNotFound) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
			return
		}
		h.log.Error(r.Context(), "list question reports", logger.Int64("question_id", questionID), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load reports"})
		return
	}
	if reports == nil {
		reports = []models.QuestionReport{}
	}
	writeJSON(w, http.StatusOK, models.QuestionReportsResponse{Reports: reports})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
