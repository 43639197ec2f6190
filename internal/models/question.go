package models

import (
	"strings"
	"time"
)

type Subject string

const (
	SubjectMath Subject = "Math"
	SubjectEBRW Subject = "EBRW"
)

// Subjects lists every subject a quiz can draw from.
var Subjects = []Subject{SubjectMath, SubjectEBRW}

// ParseSubject accepts the canonical spelling or any casing of it.
func ParseSubject(s string) (Subject, bool) {
	for _, subj := range Subjects {
		if strings.EqualFold(strings.TrimSpace(s), string(subj)) {
			return subj, true
		}
	}
	return "", false
}

const (
	MinDifficulty = 1
	MaxDifficulty = 10
)

// ── Core Structs ───────────────────────────────────────

type Question struct {
	ID            int64    `json:"id"`
	Subject       Subject  `json:"subject"`
	Difficulty    int      `json:"difficulty"`
	Prompt        string   `json:"prompt"`
	CorrectAnswer string   `json:"correct_answer"`
	WrongAnswers  []string `json:"wrong_answers"`
	Explanation   string   `json:"explanation"`
}

// Answers returns the correct answer followed by the non-empty wrong answers.
func (q Question) Answers() []string {
	all := make([]string, 0, len(q.WrongAnswers)+1)
	if q.CorrectAnswer != "" {
		all = append(all, q.CorrectAnswer)
	}
	for _, w := range q.WrongAnswers {
		if w != "" {
			all = append(all, w)
		}
	}
	return all
}

type QuestionReport struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	QuestionID int64     `json:"question_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// ── Request/Response Types ────────────────────────────

type ReportQuestionRequest struct {
	Reason string `json:"reason"`
}

type ReportQuestionResponse struct {
	ReportID int64  `json:"report_id"`
	Message  string `json:"message"`
}

type QuestionReportsResponse struct {
	Reports []QuestionReport `json:"reports"`
}
