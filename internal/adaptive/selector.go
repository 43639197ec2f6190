package adaptive

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/pinpoint-prep/backend/internal/logger"
	"github.com/pinpoint-prep/backend/internal/models"
)

// ErrNoQuestions means the bank holds no question at all for a subject.
var ErrNoQuestions = errors.New("no questions available for subject")

// ── Difficulty Mode ─────────────────────────────────────

type DifficultyMode int

const (
	ModeNormal DifficultyMode = iota
	ModeEasy
	ModeHard
)

// ModeOffset is how far Easy and Hard shift the target from the estimate.
const ModeOffset = 2

func (m DifficultyMode) String() string {
	switch m {
	case ModeEasy:
		return "easy"
	case ModeHard:
		return "hard"
	default:
		return "normal"
	}
}

// ParseDifficultyMode is case-insensitive; an empty string means Normal.
func ParseDifficultyMode(s string) (DifficultyMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return ModeNormal, nil
	case "easy":
		return ModeEasy, nil
	case "hard":
		return ModeHard, nil
	default:
		return ModeNormal, fmt.Errorf("unknown difficulty mode %q", s)
	}
}

// GetTargetDifficulty maps an estimate and mode to an integer difficulty in
// [1, 10].
func GetTargetDifficulty(estimate float64, mode DifficultyMode) int {
	r := int(math.Round(Clamp(estimate)))
	switch mode {
	case ModeEasy:
		return max(models.MinDifficulty, r-ModeOffset)
	case ModeHard:
		return min(models.MaxDifficulty, r+ModeOffset)
	default:
		return r
	}
}

// ── Randomness ──────────────────────────────────────────

// Picker chooses an index in [0, n). n is always positive.
type Picker interface {
	Intn(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedRand returns a seeded Picker safe for concurrent use.
func NewLockedRand(seed int64) Picker {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// ── Selection ───────────────────────────────────────────

// QuestionRepository reads candidate questions. Both methods return (nil, nil)
// when nothing matches; pick breaks ties among several matches.
type QuestionRepository interface {
	FindExact(ctx context.Context, subject models.Subject, difficulty int, pick Picker) (*models.Question, error)
	FindRandom(ctx context.Context, subject models.Subject, pick Picker) (*models.Question, error)
}

type Strategy string

const (
	StrategyExact  Strategy = "exact"
	StrategyNearby Strategy = "nearby"
	StrategyRandom Strategy = "random"
)

// Selection is a chosen question and how it was found. Offset is the
// distance between the target and the question's difficulty, zero for exact
// and random picks.
type Selection struct {
	Question *models.Question
	Strategy Strategy
	Offset   int
}

type Selector struct {
	repo QuestionRepository
	pick Picker
	log  logger.Logger
}

func NewSelector(repo QuestionRepository, pick Picker, log logger.Logger) *Selector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Selector{repo: repo, pick: pick, log: log}
}

// SelectQuestion finds a question for subject as close to target as the bank
// allows: the exact difficulty, then rings of growing distance (lower before
// higher), then any question of the subject.
func (s *Selector) SelectQuestion(ctx context.Context, subject models.Subject, target int) (Selection, error) {
	target = min(max(target, models.MinDifficulty), models.MaxDifficulty)

	q, err := s.repo.FindExact(ctx, subject, target, s.pick)
	if err != nil {
		return Selection{}, fmt.Errorf("select question: %w", err)
	}
	if q != nil {
		return Selection{Question: q, Strategy: StrategyExact}, nil
	}

	for k := 1; k < models.MaxDifficulty; k++ {
		for _, d := range []int{target - k, target + k} {
			if d < models.MinDifficulty || d > models.MaxDifficulty {
				continue
			}
			q, err := s.repo.FindExact(ctx, subject, d, s.pick)
			if err != nil {
				return Selection{}, fmt.Errorf("select question: %w", err)
			}
			if q != nil {
				s.log.Warn(ctx, "no question at target difficulty, using nearby",
					logger.String("subject", string(subject)),
					logger.Int("target", target),
					logger.Int("difficulty", d))
				return Selection{Question: q, Strategy: StrategyNearby, Offset: k}, nil
			}
		}
	}

	q, err = s.repo.FindRandom(ctx, subject, s.pick)
	if err != nil {
		return Selection{}, fmt.Errorf("select question: %w", err)
	}
	if q == nil {
		s.log.Error(ctx, "question bank empty for subject",
			logger.String("subject", string(subject)))
		return Selection{}, fmt.Errorf("select %s question: %w", subject, ErrNoQuestions)
	}
	s.log.Warn(ctx, "no question in difficulty range, using random",
		logger.String("subject", string(subject)),
		logger.Int("target", target))
	return Selection{Question: q, Strategy: StrategyRandom}, nil
}
