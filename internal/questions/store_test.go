package questions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinpoint-prep/backend/internal/adaptive"
	"github.com/pinpoint-prep/backend/internal/database/dbtest"
	"github.com/pinpoint-prep/backend/internal/logger"
	"github.com/pinpoint-prep/backend/internal/models"
)

// fixedPick always returns the same index, clamped to the candidate count.
type fixedPick int

func (f fixedPick) Intn(n int) int {
	if int(f) >= n {
		return n - 1
	}
	return int(f)
}

func TestFindExact(t *testing.T) {
	db := dbtest.Open(t)
	store := NewStore(db)
	ctx := context.Background()

	a := dbtest.InsertQuestion(t, db, "Math", 5, "1+1?", "2", "3", "4", "")
	b := dbtest.InsertQuestion(t, db, "Math", 5, "2+2?", "4", "5")
	dbtest.InsertQuestion(t, db, "EBRW", 5, "Pick the noun", "dog", "run")

	q, err := store.FindExact(ctx, models.SubjectMath, 5, fixedPick(0))
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, a, q.ID)
	assert.Equal(t, models.SubjectMath, q.Subject)
	assert.Equal(t, []string{"3", "4"}, q.WrongAnswers)
	assert.Equal(t, "because 2", q.Explanation)

	q, err = store.FindExact(ctx, models.SubjectMath, 5, fixedPick(1))
	require.NoError(t, err)
	assert.Equal(t, b, q.ID)

	q, err = store.FindExact(ctx, models.SubjectMath, 6, fixedPick(0))
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestFindRandom(t *testing.T) {
	db := dbtest.Open(t)
	store := NewStore(db)
	ctx := context.Background()

	q, err := store.FindRandom(ctx, models.SubjectEBRW, fixedPick(0))
	require.NoError(t, err)
	assert.Nil(t, q)

	dbtest.InsertQuestion(t, db, "EBRW", 2, "p1", "a")
	last := dbtest.InsertQuestion(t, db, "EBRW", 9, "p2", "b")

	q, err = store.FindRandom(ctx, models.SubjectEBRW, fixedPick(1))
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, last, q.ID)
}

func TestSelectorOverSQLStore(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	dbtest.InsertQuestion(t, db, "Math", 4, "lower", "a")
	dbtest.InsertQuestion(t, db, "Math", 6, "higher", "b")

	sel := adaptive.NewSelector(NewStore(db), adaptive.NewLockedRand(1), logger.NewNop())

	got, err := sel.SelectQuestion(ctx, models.SubjectMath, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Question.Difficulty)
	assert.Equal(t, adaptive.StrategyNearby, got.Strategy)

	_, err = sel.SelectQuestion(ctx, models.SubjectEBRW, 5)
	assert.ErrorIs(t, err, adaptive.ErrNoQuestions)
}

func TestSeededSelectionIsDeterministic(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		dbtest.InsertQuestion(t, db, "EBRW", 7, "tie", "a")
	}

	run := func() []int64 {
		sel := adaptive.NewSelector(NewStore(db), adaptive.NewLockedRand(7), nil)
		var ids []int64
		for i := 0; i < 10; i++ {
			got, err := sel.SelectQuestion(ctx, models.SubjectEBRW, 7)
			require.NoError(t, err)
			ids = append(ids, got.Question.ID)
		}
		return ids
	}
	assert.Equal(t, run(), run())
}

func TestGetQuestionAndReport(t *testing.T) {
	db := dbtest.Open(t)
	store := NewStore(db)
	ctx := context.Background()
	id := dbtest.InsertQuestion(t, db, "Math", 3, "3*3?", "9", "6")

	q, err := store.GetQuestion(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "3*3?", q.Prompt)

	_, err = store.GetQuestion(ctx, id+100)
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	report, err := store.ReportQuestion(ctx, 7, id, "answer is wrong")
	require.NoError(t, err)
	assert.NotZero(t, report.ID)

	_, err = store.ReportQuestion(ctx, 7, id+100, "missing")
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	_, err = store.ReportQuestion(ctx, 8, id, "typo in prompt")
	require.NoError(t, err)

	reports, err := store.ListReports(ctx, 7, id)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, int64(7), reports[0].UserID)
	assert.Equal(t, "answer is wrong", reports[0].Reason)
	assert.True(t, report.CreatedAt.Equal(reports[0].CreatedAt))

	reports, err = store.ListReports(ctx, 9, id)
	require.NoError(t, err)
	assert.Empty(t, reports)

	_, err = store.ListReports(ctx, 7, id+100)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}
