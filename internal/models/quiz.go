package models

import "time"

// ── Result Types ─────────────────────────────────────────

// QuestionResult is one graded question as stored with a finished quiz.
type QuestionResult struct {
	QuestionID    int64    `json:"question_id"`
	Subject       Subject  `json:"subject"`
	Difficulty    float64  `json:"difficulty"`
	Prompt        string   `json:"prompt"`
	YourAnswer    string   `json:"your_answer"`
	CorrectAnswer string   `json:"correct_answer"`
	WrongAnswers  []string `json:"wrong_answers,omitempty"`
	Explanation   string   `json:"explanation"`
	Correct       bool     `json:"correct"`
}

type QuizResult struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`

	// Local (session) estimates at the end of the quiz.
	LocalMath    float64 `json:"local_math"`
	LocalEBRW    float64 `json:"local_ebrw"`
	LocalOverall float64 `json:"local_overall"`

	// Persisted estimates after the batch update.
	ActualMath    float64 `json:"actual_math"`
	ActualEBRW    float64 `json:"actual_ebrw"`
	ActualOverall float64 `json:"actual_overall"`

	MathCorrect int `json:"math_correct"`
	EBRWCorrect int `json:"ebrw_correct"`
	MathTotal   int `json:"math_total"`
	EBRWTotal   int `json:"ebrw_total"`

	Retake         bool             `json:"retake"`
	Mode           string           `json:"mode"`
	StartedAt      time.Time        `json:"started_at"`
	EndedAt        time.Time        `json:"ended_at"`
	ElapsedSeconds float64          `json:"elapsed_seconds"`
	Questions      []QuestionResult `json:"questions"`
}

// ── Request Types ────────────────────────────────────────

type StartQuizRequest struct {
	Mode string `json:"mode"`
}

type AnswerRequest struct {
	QuestionNumber int    `json:"question_number"`
	SelectedAnswer string `json:"selected_answer"`
}

// ── Response Types ────────────────────────────────────────

type QuizSessionResponse struct {
	SessionID      string    `json:"session_id"`
	Mode           string    `json:"mode"`
	Adaptive       bool      `json:"adaptive"`
	Retake         bool      `json:"retake"`
	TotalQuestions int       `json:"total_questions"`
	Answered       int       `json:"answered"`
	LocalMath      float64   `json:"local_math"`
	LocalEBRW      float64   `json:"local_ebrw"`
	StartedAt      time.Time `json:"started_at"`
}

// ServedQuestion strips the correct answer and explanation for serving.
type ServedQuestion struct {
	SessionID      string   `json:"session_id"`
	QuestionNumber int      `json:"question_number"`
	TotalQuestions int      `json:"total_questions"`
	QuestionID     int64    `json:"question_id"`
	Subject        Subject  `json:"subject"`
	Difficulty     float64  `json:"difficulty"`
	Prompt         string   `json:"prompt"`
	Answers        []string `json:"answers"`
}

type AnswerResponse struct {
	QuestionNumber int     `json:"question_number"`
	Correct        bool    `json:"correct"`
	CorrectAnswer  string  `json:"correct_answer"`
	Explanation    string  `json:"explanation"`
	LocalEstimate  float64 `json:"local_estimate"`
	Remaining      int     `json:"remaining"`
}

type QuizHistoryResponse struct {
	Results []QuizResult `json:"results"`
	Total   int          `json:"total"`
}
