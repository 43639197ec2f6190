package quiz

import (
	"time"

	"github.com/pinpoint-prep/backend/internal/adaptive"
	"github.com/pinpoint-prep/backend/internal/models"
)

// QuestionRecord is one question of a quiz. It is created when the question is
// served (or preloaded for a retake) and answered at most once.
type QuestionRecord struct {
	QuestionID     int64          `json:"question_id"`
	Subject        models.Subject `json:"subject"`
	Difficulty     float64        `json:"difficulty"`
	Prompt         string         `json:"prompt"`
	CorrectAnswer  string         `json:"correct_answer"`
	WrongAnswers   []string       `json:"wrong_answers,omitempty"`
	Explanation    string         `json:"explanation"`
	Answers        []string       `json:"answers"`
	SelectedAnswer *string        `json:"selected_answer,omitempty"`
	Correct        *bool          `json:"correct,omitempty"`
}

func (r QuestionRecord) Answered() bool { return r.Correct != nil }

// State is everything a quiz in progress needs. Callers load it, apply one
// operation and save it back; it never touches storage itself.
type State struct {
	ID             string           `json:"id"`
	UserID         int64            `json:"user_id"`
	Adaptive       bool             `json:"adaptive"`
	Retake         bool             `json:"retake"`
	Mode           string           `json:"mode"`
	TotalQuestions int              `json:"total_questions"`
	EBRWQuota      int              `json:"ebrw_quota"`
	LocalMath      float64          `json:"local_math"`
	LocalEBRW      float64          `json:"local_ebrw"`
	MathCount      int              `json:"math_count"`
	EBRWCount      int              `json:"ebrw_count"`
	CurrentIndex   int              `json:"current_index"`
	Questions      []QuestionRecord `json:"questions"`
	StartedAt      time.Time        `json:"started_at"`
}

// NewAdaptiveState starts an adaptive quiz seeded with the persisted estimates.
func NewAdaptiveState(id string, userID int64, mode adaptive.DifficultyMode, total, ebrwQuota int, est models.UserProficiency, now time.Time) *State {
	return &State{
		ID:             id,
		UserID:         userID,
		Adaptive:       true,
		Mode:           mode.String(),
		TotalQuestions: total,
		EBRWQuota:      ebrwQuota,
		LocalMath:      adaptive.Clamp(est.Math),
		LocalEBRW:      adaptive.Clamp(est.EBRW),
		StartedAt:      now,
	}
}

// NewRetakeState replays the questions of prev with answers cleared. Local
// estimates start from where prev ended.
func NewRetakeState(id string, userID int64, prev *models.QuizResult, shuffle func([]string), now time.Time) *State {
	s := &State{
		ID:             id,
		UserID:         userID,
		Retake:         true,
		Mode:           prev.Mode,
		TotalQuestions: len(prev.Questions),
		LocalMath:      adaptive.Clamp(prev.LocalMath),
		LocalEBRW:      adaptive.Clamp(prev.LocalEBRW),
		StartedAt:      now,
	}
	for _, q := range prev.Questions {
		rec := QuestionRecord{
			QuestionID:    q.QuestionID,
			Subject:       q.Subject,
			Difficulty:    q.Difficulty,
			Prompt:        q.Prompt,
			CorrectAnswer: q.CorrectAnswer,
			WrongAnswers:  append([]string(nil), q.WrongAnswers...),
			Explanation:   q.Explanation,
		}
		rec.Answers = answerChoices(rec.CorrectAnswer, rec.WrongAnswers, shuffle)
		s.Questions = append(s.Questions, rec)
		if q.Subject == models.SubjectEBRW {
			s.EBRWQuota++
		}
	}
	return s
}

func answerChoices(correct string, wrong []string, shuffle func([]string)) []string {
	all := models.Question{CorrectAnswer: correct, WrongAnswers: wrong}.Answers()
	if shuffle != nil {
		shuffle(all)
	}
	return all
}

// Complete reports whether every question has been served.
func (s *State) Complete() bool {
	return s.CurrentIndex >= s.TotalQuestions
}

// Remaining is the number of questions not yet served.
func (s *State) Remaining() int {
	return max(0, s.TotalQuestions-s.CurrentIndex)
}

// Answered counts answered questions.
func (s *State) Answered() int {
	n := 0
	for _, q := range s.Questions {
		if q.Answered() {
			n++
		}
	}
	return n
}

// Pending returns the number of the last served question if it is still
// unanswered.
func (s *State) Pending() (int, bool) {
	if s.CurrentIndex == 0 || s.CurrentIndex > len(s.Questions) {
		return 0, false
	}
	if s.Questions[s.CurrentIndex-1].Answered() {
		return 0, false
	}
	return s.CurrentIndex, true
}

// NextSubject is the subject of the next adaptive question: EBRW until its
// quota is served, then Math.
func (s *State) NextSubject() models.Subject {
	if s.EBRWCount < s.EBRWQuota {
		return models.SubjectEBRW
	}
	return models.SubjectMath
}

// LocalEstimate is the session estimate for subj.
func (s *State) LocalEstimate(subj models.Subject) float64 {
	if subj == models.SubjectMath {
		return s.LocalMath
	}
	return s.LocalEBRW
}

// Serve appends q as the next question of an adaptive quiz and returns its
// 1-based number.
func (s *State) Serve(q *models.Question, shuffle func([]string)) (int, error) {
	if s.Complete() {
		return 0, ErrQuizComplete
	}
	rec := QuestionRecord{
		QuestionID:    q.ID,
		Subject:       q.Subject,
		Difficulty:    float64(q.Difficulty),
		Prompt:        q.Prompt,
		CorrectAnswer: q.CorrectAnswer,
		WrongAnswers:  append([]string(nil), q.WrongAnswers...),
		Explanation:   q.Explanation,
	}
	rec.Answers = answerChoices(rec.CorrectAnswer, rec.WrongAnswers, shuffle)
	s.Questions = append(s.Questions, rec)
	s.advance(q.Subject)
	return s.CurrentIndex, nil
}

// ServePreloaded moves to the next preloaded question of a retake and returns
// its number.
func (s *State) ServePreloaded() (int, error) {
	if s.Complete() || s.CurrentIndex >= len(s.Questions) {
		return 0, ErrQuizComplete
	}
	s.advance(s.Questions[s.CurrentIndex].Subject)
	return s.CurrentIndex, nil
}

func (s *State) advance(subj models.Subject) {
	if subj == models.SubjectEBRW {
		s.EBRWCount++
	} else {
		s.MathCount++
	}
	s.CurrentIndex++
}

// Question returns served question number n.
func (s *State) Question(n int) (QuestionRecord, error) {
	if n < 1 || n > s.CurrentIndex || n > len(s.Questions) {
		return QuestionRecord{}, ErrInvalidQuestionNumber
	}
	return s.Questions[n-1], nil
}

// RecordAnswer grades selected against served question n. On adaptive quizzes
// the local estimate of the question's subject moves as well.
func (s *State) RecordAnswer(n int, selected string) (QuestionRecord, error) {
	rec, err := s.Question(n)
	if err != nil {
		return QuestionRecord{}, err
	}
	if rec.Answered() {
		return QuestionRecord{}, ErrAlreadyAnswered
	}

	correct := selected == rec.CorrectAnswer
	rec.SelectedAnswer = &selected
	rec.Correct = &correct
	s.Questions[n-1] = rec

	if s.Adaptive {
		if rec.Subject == models.SubjectMath {
			s.LocalMath = adaptive.ApplySessionChange(s.LocalMath, correct)
		} else {
			s.LocalEBRW = adaptive.ApplySessionChange(s.LocalEBRW, correct)
		}
	}
	return rec, nil
}

// AnswerEvents lists every question of the quiz in order. Unanswered
// questions count as incorrect.
func (s *State) AnswerEvents() []adaptive.AnswerEvent {
	events := make([]adaptive.AnswerEvent, 0, len(s.Questions))
	for _, q := range s.Questions {
		events = append(events, adaptive.AnswerEvent{
			Subject:    q.Subject,
			Difficulty: q.Difficulty,
			Correct:    q.Correct != nil && *q.Correct,
		})
	}
	return events
}

// Result summarises the quiz given the updated persisted estimates.
func (s *State) Result(actual adaptive.Estimates, endedAt time.Time) *models.QuizResult {
	res := &models.QuizResult{
		UserID:         s.UserID,
		LocalMath:      adaptive.Round2(s.LocalMath),
		LocalEBRW:      adaptive.Round2(s.LocalEBRW),
		LocalOverall:   adaptive.Round2((s.LocalMath + s.LocalEBRW) / 2),
		ActualMath:     actual.Math,
		ActualEBRW:     actual.EBRW,
		ActualOverall:  actual.Overall,
		Retake:         s.Retake,
		Mode:           s.Mode,
		StartedAt:      s.StartedAt,
		EndedAt:        endedAt,
		ElapsedSeconds: endedAt.Sub(s.StartedAt).Seconds(),
	}
	for _, q := range s.Questions {
		correct := q.Correct != nil && *q.Correct
		var your string
		if q.SelectedAnswer != nil {
			your = *q.SelectedAnswer
		}
		if q.Subject == models.SubjectMath {
			res.MathTotal++
			if correct {
				res.MathCorrect++
			}
		} else {
			res.EBRWTotal++
			if correct {
				res.EBRWCorrect++
			}
		}
		res.Questions = append(res.Questions, models.QuestionResult{
			QuestionID:    q.QuestionID,
			Subject:       q.Subject,
			Difficulty:    q.Difficulty,
			Prompt:        q.Prompt,
			YourAnswer:    your,
			CorrectAnswer: q.CorrectAnswer,
			WrongAnswers:  q.WrongAnswers,
			Explanation:   q.Explanation,
			Correct:       correct,
		})
	}
	return res
}

// served renders question n for the learner, without the answer key.
func (s *State) served(n int) (*models.ServedQuestion, error) {
	rec, err := s.Question(n)
	if err != nil {
		return nil, err
	}
	return &models.ServedQuestion{
		SessionID:      s.ID,
		QuestionNumber: n,
		TotalQuestions: s.TotalQuestions,
		QuestionID:     rec.QuestionID,
		Subject:        rec.Subject,
		Difficulty:     rec.Difficulty,
		Prompt:         rec.Prompt,
		Answers:        rec.Answers,
	}, nil
}

func (s *State) summary() *models.QuizSessionResponse {
	return &models.QuizSessionResponse{
		SessionID:      s.ID,
		Mode:           s.Mode,
		Adaptive:       s.Adaptive,
		Retake:         s.Retake,
		TotalQuestions: s.TotalQuestions,
		Answered:       s.Answered(),
		LocalMath:      s.LocalMath,
		LocalEBRW:      s.LocalEBRW,
		StartedAt:      s.StartedAt,
	}
}
