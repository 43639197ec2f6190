package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pinpoint-prep/backend/internal/adaptive"
	"github.com/pinpoint-prep/backend/internal/events"
	"github.com/pinpoint-prep/backend/internal/logger"
	"github.com/pinpoint-prep/backend/internal/metrics"
	"github.com/pinpoint-prep/backend/internal/models"
)

// HistoryLimit is how many results History returns.
const HistoryLimit = 10

// SessionStore persists quiz sessions and finished results. Lookups return
// (nil, nil) when nothing matches.
type SessionStore interface {
	CreateSession(ctx context.Context, s *State) error
	GetSession(ctx context.Context, id string) (*State, error)
	SaveSession(ctx context.Context, s *State) error
	DeleteSession(ctx context.Context, id string) error

	SaveResult(ctx context.Context, r *models.QuizResult) (int64, error)
	GetResult(ctx context.Context, id int64) (*models.QuizResult, error)
	LatestResult(ctx context.Context, userID int64) (*models.QuizResult, error)
	ListResults(ctx context.Context, userID int64, limit int) ([]models.QuizResult, error)
	CountResults(ctx context.Context, userID int64) (int, error)
}

type ProficiencyStore interface {
	ReadEstimates(ctx context.Context, userID int64) (*models.UserProficiency, error)
	WriteEstimates(ctx context.Context, userID int64, est adaptive.Estimates) error
}

type QuestionSelector interface {
	SelectQuestion(ctx context.Context, subject models.Subject, target int) (adaptive.Selection, error)
}

type Options struct {
	TotalQuestions int
	EBRWQuestions  int
}

type Service struct {
	sessions    SessionStore
	proficiency ProficiencyStore
	committer   Committer
	selector    QuestionSelector
	publisher   events.Publisher
	metrics     *metrics.Manager
	log         logger.Logger
	pick        adaptive.Picker
	opts        Options
	now         func() time.Time
	newID       func() string

	// Serialise work on one session, and estimate updates for one user,
	// within this process. Submit takes a session stripe before a user stripe.
	sessionLocks stripedLocks
	userLocks    stripedLocks
}

func NewService(
	sessions SessionStore,
	proficiency ProficiencyStore,
	committer Committer,
	selector QuestionSelector,
	publisher events.Publisher,
	m *metrics.Manager,
	log logger.Logger,
	pick adaptive.Picker,
	opts Options,
) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	if pick == nil {
		pick = adaptive.NewLockedRand(time.Now().UnixNano())
	}
	if opts.TotalQuestions <= 0 {
		opts.TotalQuestions = 10
	}
	if opts.EBRWQuestions < 0 || opts.EBRWQuestions > opts.TotalQuestions {
		opts.EBRWQuestions = opts.TotalQuestions / 2
	}
	return &Service{
		sessions:    sessions,
		proficiency: proficiency,
		committer:   committer,
		selector:    selector,
		publisher:   publisher,
		metrics:     m,
		log:         log,
		pick:        pick,
		opts:        opts,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (s *Service) shuffle(xs []string) {
	for i := len(xs) - 1; i > 0; i-- {
		j := s.pick.Intn(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
	}
}

// loadSession returns the session if it exists and belongs to userID.
func (s *Service) loadSession(ctx context.Context, userID int64, sessionID string) (*State, error) {
	st, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if st == nil || st.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

// ── Starting ────────────────────────────────────────────

// Start begins an adaptive quiz seeded with the user's persisted estimates.
func (s *Service) Start(ctx context.Context, userID int64, mode adaptive.DifficultyMode) (*models.QuizSessionResponse, error) {
	est, err := s.proficiency.ReadEstimates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read estimates: %w", err)
	}

	st := NewAdaptiveState(s.newID(), userID, mode, s.opts.TotalQuestions, s.opts.EBRWQuestions, *est, s.now())
	if err := s.sessions.CreateSession(ctx, st); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.metrics.RecordQuizStarted(false)
	s.log.Info(ctx, "quiz started",
		logger.String("session_id", st.ID),
		logger.Int64("user_id", userID),
		logger.String("mode", st.Mode),
		logger.Float64("local_math", st.LocalMath),
		logger.Float64("local_ebrw", st.LocalEBRW))
	return st.summary(), nil
}

// StartRetake replays the question set of the user's most recent quiz.
func (s *Service) StartRetake(ctx context.Context, userID int64) (*models.QuizSessionResponse, error) {
	prev, err := s.sessions.LatestResult(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("latest result: %w", err)
	}
	if prev == nil || len(prev.Questions) == 0 {
		return nil, ErrNoPreviousQuiz
	}

	st := NewRetakeState(s.newID(), userID, prev, s.shuffle, s.now())
	if err := s.sessions.CreateSession(ctx, st); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.metrics.RecordQuizStarted(true)
	s.log.Info(ctx, "retake started",
		logger.String("session_id", st.ID),
		logger.Int64("user_id", userID),
		logger.Int64("previous_result_id", prev.ID),
		logger.Int("questions", len(st.Questions)))
	return st.summary(), nil
}

// Session reports the progress of a quiz.
func (s *Service) Session(ctx context.Context, userID int64, sessionID string) (*models.QuizSessionResponse, error) {
	st, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return st.summary(), nil
}

// ── Serving ─────────────────────────────────────────────

// Next returns the question to work on: the last served one while it is
// unanswered, otherwise a newly served one.
func (s *Service) Next(ctx context.Context, userID int64, sessionID string) (*models.ServedQuestion, error) {
	defer s.sessionLocks.lock(sessionID)()

	st, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if n, ok := st.Pending(); ok {
		return st.served(n)
	}
	if st.Complete() {
		return nil, ErrQuizComplete
	}

	var n int
	if st.Adaptive {
		subject := st.NextSubject()
		mode, err := adaptive.ParseDifficultyMode(st.Mode)
		if err != nil {
			return nil, fmt.Errorf("session mode: %w", err)
		}
		target := adaptive.GetTargetDifficulty(st.LocalEstimate(subject), mode)

		sel, err := s.selector.SelectQuestion(ctx, subject, target)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordSelection(string(subject), string(sel.Strategy), sel.Offset)

		if n, err = st.Serve(sel.Question, s.shuffle); err != nil {
			return nil, err
		}
		s.log.Debug(ctx, "question served",
			logger.String("session_id", st.ID),
			logger.String("subject", string(subject)),
			logger.Int("target", target),
			logger.Int("difficulty", sel.Question.Difficulty),
			logger.String("strategy", string(sel.Strategy)))
	} else {
		if n, err = st.ServePreloaded(); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.SaveSession(ctx, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return st.served(n)
}

// Question returns an already served question by number.
func (s *Service) Question(ctx context.Context, userID int64, sessionID string, number int) (*models.ServedQuestion, error) {
	st, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return st.served(number)
}

// ── Answering ───────────────────────────────────────────

func (s *Service) Answer(ctx context.Context, userID int64, sessionID string, number int, selected string) (*models.AnswerResponse, error) {
	defer s.sessionLocks.lock(sessionID)()

	st, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	rec, err := st.RecordAnswer(number, selected)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SaveSession(ctx, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return &models.AnswerResponse{
		QuestionNumber: number,
		Correct:        *rec.Correct,
		CorrectAnswer:  rec.CorrectAnswer,
		Explanation:    rec.Explanation,
		LocalEstimate:  st.LocalEstimate(rec.Subject),
		Remaining:      st.Remaining(),
	}, nil
}

// ── Submitting ──────────────────────────────────────────

// Submit grades the quiz, folds it into the persisted estimates, stores the
// result and ends the session. The estimate update, the result and the
// session delete commit together or not at all.
func (s *Service) Submit(ctx context.Context, userID int64, sessionID string) (*models.QuizResult, error) {
	defer s.sessionLocks.lock(sessionID)()

	st, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	answers := st.AnswerEvents()

	defer s.userLocks.lock(userKey(userID))()

	var (
		actual adaptive.Estimates
		res    *models.QuizResult
	)
	err = s.committer.Commit(ctx, func(sessions SessionStore, proficiency ProficiencyStore) error {
		// A session already gone was submitted elsewhere.
		if err := sessions.DeleteSession(ctx, st.ID); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return err
			}
			return fmt.Errorf("delete session: %w", err)
		}

		cur, err := proficiency.ReadEstimates(ctx, userID)
		if err != nil {
			return fmt.Errorf("read estimates: %w", err)
		}
		actual = adaptive.UpdateActualProficiency(
			adaptive.Estimates{Math: cur.Math, EBRW: cur.EBRW, Overall: cur.Overall},
			answers, st.Retake)
		if err := proficiency.WriteEstimates(ctx, userID, actual); err != nil {
			return fmt.Errorf("write estimates: %w", err)
		}

		res = st.Result(actual, s.now())
		id, err := sessions.SaveResult(ctx, res)
		if err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		res.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, subj := range models.Subjects {
		for _, a := range answers {
			if a.Subject == subj {
				s.metrics.RecordProficiencyUpdate(string(subj))
				break
			}
		}
	}
	s.metrics.RecordQuizCompleted(st.Retake)
	s.log.Info(ctx, "quiz submitted",
		logger.String("session_id", st.ID),
		logger.Int64("result_id", res.ID),
		logger.Int64("user_id", userID),
		logger.Bool("retake", st.Retake),
		logger.Float64("actual_math", actual.Math),
		logger.Float64("actual_ebrw", actual.EBRW))

	err = s.publisher.PublishQuizCompleted(ctx, events.QuizCompleted{
		ResultID:      res.ID,
		UserID:        userID,
		Retake:        res.Retake,
		Mode:          res.Mode,
		MathCorrect:   res.MathCorrect,
		MathTotal:     res.MathTotal,
		EBRWCorrect:   res.EBRWCorrect,
		EBRWTotal:     res.EBRWTotal,
		ActualMath:    res.ActualMath,
		ActualEBRW:    res.ActualEBRW,
		ActualOverall: res.ActualOverall,
		CompletedAt:   res.EndedAt,
	})
	if err != nil {
		// Best effort: the result is already stored.
		s.log.Warn(ctx, "publish quiz.completed", logger.Int64("result_id", res.ID), logger.Error(err))
	}
	return res, nil
}

// ── Results ─────────────────────────────────────────────

func (s *Service) GetResult(ctx context.Context, userID, resultID int64) (*models.QuizResult, error) {
	res, err := s.sessions.GetResult(ctx, resultID)
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	if res == nil || res.UserID != userID {
		return nil, ErrResultNotFound
	}
	return res, nil
}

// History returns the user's most recent results, newest first.
func (s *Service) History(ctx context.Context, userID int64) (*models.QuizHistoryResponse, error) {
	results, err := s.sessions.ListResults(ctx, userID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	total, err := s.sessions.CountResults(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	if results == nil {
		results = []models.QuizResult{}
	}
	return &models.QuizHistoryResponse{Results: results, Total: total}, nil
}
