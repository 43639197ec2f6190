// Package events publishes quiz lifecycle events for downstream consumers
// such as the accolade service.
package events

import (
	"context"
	"encoding/json"
	"time"
)

const TypeQuizCompleted = "quiz.completed"

// QuizCompleted is emitted once per submitted quiz.
type QuizCompleted struct {
	ResultID      int64     `json:"result_id"`
	UserID        int64     `json:"user_id"`
	Retake        bool      `json:"retake"`
	Mode          string    `json:"mode"`
	MathCorrect   int       `json:"math_correct"`
	MathTotal     int       `json:"math_total"`
	EBRWCorrect   int       `json:"ebrw_correct"`
	EBRWTotal     int       `json:"ebrw_total"`
	ActualMath    float64   `json:"actual_math"`
	ActualEBRW    float64   `json:"actual_ebrw"`
	ActualOverall float64   `json:"actual_overall"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishQuizCompleted(ctx context.Context, ev QuizCompleted) error
	Close() error
}

// envelope is the wire shape shared by every event: {"type": ..., "payload": ...}.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func encode(eventType string, payload any) ([]byte, error) {
	return json.Marshal(envelope{Type: eventType, Payload: payload})
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishQuizCompleted(context.Context, QuizCompleted) error { return nil }
func (Nop) Close() error                                             { return nil }
