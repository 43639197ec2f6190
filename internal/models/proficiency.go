package models

import "time"

const (
	MinProficiency = 1.0
	MaxProficiency = 10.0
)

type UserProficiency struct {
	UserID    int64     `json:"user_id"`
	Math      float64   `json:"math"`
	EBRW      float64   `json:"ebrw"`
	Overall   float64   `json:"overall"`
	UpdatedAt time.Time `json:"updated_at"`
}

// For returns the estimate held for subj.
func (p UserProficiency) For(subj Subject) float64 {
	if subj == SubjectMath {
		return p.Math
	}
	return p.EBRW
}

type ErrorResponse struct {
	Error string `json:"error"`
}
