package adaptive

import (
	"math"

	"github.com/pinpoint-prep/backend/internal/models"
)

// BandTolerance is how far apart an estimate and a question difficulty may be
// while still counting as the same level.
const BandTolerance = 0.2

// Band classifies a question's difficulty relative to the learner.
type Band int

const (
	BandAt    Band = iota // within BandTolerance of the estimate
	BandAbove             // question harder than the learner
	BandBelow             // question easier than the learner
)

func (b Band) String() string {
	switch b {
	case BandAbove:
		return "above"
	case BandBelow:
		return "below"
	default:
		return "at"
	}
}

// step holds the change for one band: reward on a correct answer, penalty
// (a positive magnitude) on an incorrect one.
type step struct {
	reward  float64
	penalty float64
}

var firstAttempt = map[Band]step{
	BandAbove: {reward: 0.05, penalty: 0.02},
	BandAt:    {reward: 0.03, penalty: 0.08},
	BandBelow: {reward: 0.02, penalty: 0.12},
}

// Retakes move the estimate half as far in both directions.
var retakeAttempt = map[Band]step{
	BandAbove: {reward: 0.025, penalty: 0.01},
	BandAt:    {reward: 0.015, penalty: 0.04},
	BandBelow: {reward: 0.01, penalty: 0.06},
}

// Within-quiz movement of the local estimate on adaptive quizzes.
const (
	SessionGain = 0.5
	SessionLoss = 1.0
)

// AnswerEvent is one graded question, consumed once by the estimator.
type AnswerEvent struct {
	Subject    models.Subject
	Difficulty float64
	Correct    bool
}

// Estimates is the per-subject skill state of a learner.
type Estimates struct {
	Math    float64 `json:"math"`
	EBRW    float64 `json:"ebrw"`
	Overall float64 `json:"overall"`
}

// Classify returns the band of questionDifficulty relative to current.
func Classify(current, questionDifficulty float64) Band {
	diff := questionDifficulty - current
	switch {
	case diff > BandTolerance:
		return BandAbove
	case diff < -BandTolerance:
		return BandBelow
	default:
		return BandAt
	}
}

// Delta returns the signed change the table assigns to one answer.
func Delta(band Band, correct, retake bool) float64 {
	table := firstAttempt
	if retake {
		table = retakeAttempt
	}
	s := table[band]
	if correct {
		return s.reward
	}
	return -s.penalty
}

// ApplyProficiencyChange moves current by the table entry for the band of
// questionDifficulty. The result is neither clamped nor rounded.
func ApplyProficiencyChange(current, questionDifficulty float64, correct, retake bool) float64 {
	return current + Delta(Classify(current, questionDifficulty), correct, retake)
}

// UpdateActualProficiency folds answers, in the order they were given, into the
// persisted estimates. Math and EBRW are folded independently. Both results
// are clamped to [1, 10] and rounded to two decimals; Overall is their mean.
func UpdateActualProficiency(est Estimates, answers []AnswerEvent, retake bool) Estimates {
	mathEst := Clamp(est.Math)
	ebrwEst := Clamp(est.EBRW)

	for _, a := range answers {
		switch a.Subject {
		case models.SubjectMath:
			mathEst = ApplyProficiencyChange(mathEst, a.Difficulty, a.Correct, retake)
		case models.SubjectEBRW:
			ebrwEst = ApplyProficiencyChange(ebrwEst, a.Difficulty, a.Correct, retake)
		}
	}

	mathEst = Round2(Clamp(mathEst))
	ebrwEst = Round2(Clamp(ebrwEst))
	return Estimates{
		Math:    mathEst,
		EBRW:    ebrwEst,
		Overall: Round2((mathEst + ebrwEst) / 2.0),
	}
}

// ApplySessionChange updates a local estimate after one answer in an adaptive
// quiz.
func ApplySessionChange(local float64, correct bool) float64 {
	if correct {
		return Clamp(local + SessionGain)
	}
	return Clamp(local - SessionLoss)
}

// Clamp bounds v to the proficiency scale.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < models.MinProficiency {
		return models.MinProficiency
	}
	if v > models.MaxProficiency {
		return models.MaxProficiency
	}
	return v
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
