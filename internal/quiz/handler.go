package quiz

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pinpoint-prep/backend/internal/adaptive"
	"github.com/pinpoint-prep/backend/internal/logger"
	"github.com/pinpoint-prep/backend/internal/middleware"
	"github.com/pinpoint-prep/backend/internal/models"
)

type Handler struct {
	service *Service
	log     logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the quiz routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/quizzes", h.StartQuiz).Methods("POST")
	r.HandleFunc("/quizzes/retake", h.StartRetake).Methods("POST")
	r.HandleFunc("/quizzes/history", h.GetHistory).Methods("GET")
	r.HandleFunc("/quizzes/results/{id}", h.GetResult).Methods("GET")
	r.HandleFunc("/quizzes/{session}", h.GetSession).Methods("GET")
	r.HandleFunc("/quizzes/{session}/next", h.NextQuestion).Methods("GET")
	r.HandleFunc("/quizzes/{session}/questions/{number}", h.GetQuestion).Methods("GET")
	r.HandleFunc("/quizzes/{session}/answers", h.SubmitAnswer).Methods("POST")
	r.HandleFunc("/quizzes/{session}/submit", h.SubmitQuiz).Methods("POST")
}

// StartQuiz handles POST /quizzes.
func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.StartQuizRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
			return
		}
	}
	mode, err := adaptive.ParseDifficultyMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "mode must be easy, normal or hard"})
		return
	}

	resp, err := h.service.Start(r.Context(), userID, mode)
	if err != nil {
		h.fail(w, r, "start quiz", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// StartRetake handles POST /quizzes/retake.
func (h *Handler) StartRetake(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.service.StartRetake(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "start retake", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetSession handles GET /quizzes/{session}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.service.Session(r.Context(), userID, mux.Vars(r)["session"])
	if err != nil {
		h.fail(w, r, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// NextQuestion handles GET /quizzes/{session}/next.
func (h *Handler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	q, err := h.service.Next(r.Context(), userID, mux.Vars(r)["session"])
	if err != nil {
		h.fail(w, r, "next question", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// GetQuestion handles GET /quizzes/{session}/questions/{number}.
func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	vars := mux.Vars(r)
	number, err := strconv.Atoi(vars["number"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question number"})
		return
	}

	q, err := h.service.Question(r.Context(), userID, vars["session"], number)
	if err != nil {
		h.fail(w, r, "get question", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// SubmitAnswer handles POST /quizzes/{session}/answers.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.SelectedAnswer == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "selected_answer is required"})
		return
	}

	resp, err := h.service.Answer(r.Context(), userID, mux.Vars(r)["session"], req.QuestionNumber, req.SelectedAnswer)
	if err != nil {
		h.fail(w, r, "submit answer", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitQuiz handles POST /quizzes/{session}/submit.
func (h *Handler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	res, err := h.service.Submit(r.Context(), userID, mux.Vars(r)["session"])
	if err != nil {
		h.fail(w, r, "submit quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetResult handles GET /quizzes/results/{id}.
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid result ID"})
		return
	}

	res, err := h.service.GetResult(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, "get result", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetHistory handles GET /quizzes/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	resp, err := h.service.History(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "quiz history", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// fail maps service errors onto status codes. Anything unrecognised is
// logged and reported as a 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Quiz session not found"})
	case errors.Is(err, ErrResultNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Quiz result not found"})
	case errors.Is(err, ErrNoPreviousQuiz):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "No previous quiz to retake"})
	case errors.Is(err, ErrInvalidQuestionNumber):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question number"})
	case errors.Is(err, ErrAlreadyAnswered):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Question already answered"})
	case errors.Is(err, ErrQuizComplete):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "All questions have been served"})
	case errors.Is(err, adaptive.ErrNoQuestions):
		h.log.Error(r.Context(), op, logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Question bank incomplete"})
	default:
		h.log.Error(r.Context(), op, logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
