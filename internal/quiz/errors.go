package quiz

import "errors"

var (
	ErrSessionNotFound       = errors.New("quiz session not found")
	ErrQuizComplete          = errors.New("all questions have been served")
	ErrAlreadyAnswered       = errors.New("question already answered")
	ErrInvalidQuestionNumber = errors.New("invalid question number")
	ErrNoPreviousQuiz        = errors.New("no previous quiz to retake")
	ErrResultNotFound        = errors.New("quiz result not found")
)
