package attempt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizforge/internal/attempt"
	"quizforge/internal/domain"
)

func twoOptionQuestion(id int, correct string) domain.Question {
	return domain.Question{
		ID:           id,
		QuestionText: "Q",
		Options: []domain.Option{
			{ID: "a", Text: "X"},
			{ID: "b", Text: "Y"},
		},
		CorrectOptionID: correct,
		Explanation:     "because",
	}
}

func makeDoc(correct ...string) *domain.QuizDocument {
	doc := &domain.QuizDocument{QuizTitle: "T"}
	for i, c := range correct {
		doc.Questions = append(doc.Questions, twoOptionQuestion(i+1, c))
	}
	return doc
}

func TestAttempt_SingleQuestionCorrect(t *testing.T) {
	a := attempt.New("", makeDoc("b"))
	require.Equal(t, attempt.PhasePresenting, a.Phase())

	out, ok := a.SelectAnswer("b")
	require.True(t, ok)
	assert.True(t, out.Correct)
	assert.Equal(t, "b", out.CorrectOptionID)
	assert.Equal(t, "because", out.Explanation)
	assert.Equal(t, 1, a.Score())
	assert.Equal(t, attempt.PhaseGraded, a.Phase())

	require.True(t, a.Advance())
	require.Equal(t, attempt.PhaseFinished, a.Phase())

	s, done := a.Results()
	require.True(t, done)
	assert.Equal(t, attempt.Summary{Score: 1, Total: 1, Percentage: 100}, s)
}

func TestAttempt_SingleQuestionIncorrect(t *testing.T) {
	a := attempt.New("", makeDoc("b"))

	out, ok := a.SelectAnswer("a")
	require.True(t, ok)
	assert.False(t, out.Correct)
	assert.Equal(t, 0, a.Score())

	require.True(t, a.Advance())

	s, done := a.Results()
	require.True(t, done)
	assert.Equal(t, attempt.Summary{Score: 0, Total: 1, Percentage: 0}, s)
}

func TestAttempt_FullWalkReachesFinished(t *testing.T) {
	doc := makeDoc("a", "b", "a", "b", "a")
	a := attempt.New("", doc)

	// Answer "a" everywhere: questions 0, 2, 4 are correct.
	for i := 0; i < len(doc.Questions); i++ {
		_, ok := a.SelectAnswer("a")
		require.True(t, ok, "question %d should accept an answer", i)
		require.True(t, a.Advance(), "question %d should advance", i)
	}

	require.Equal(t, attempt.PhaseFinished, a.Phase())

	s, done := a.Results()
	require.True(t, done)
	assert.Equal(t, 3, s.Score)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 60, s.Percentage)
}

func TestAttempt_SelectAnswerIsIdempotent(t *testing.T) {
	a := attempt.New("", makeDoc("b", "b"))

	_, ok := a.SelectAnswer("b")
	require.True(t, ok)
	require.Equal(t, 1, a.Score())

	// A second grade in the same phase must be rejected and never
	// double-count.
	_, ok = a.SelectAnswer("b")
	assert.False(t, ok)
	assert.Equal(t, 1, a.Score())

	_, ok = a.SelectAnswer("a")
	assert.False(t, ok)
	assert.Equal(t, 1, a.Score())
	assert.Equal(t, attempt.PhaseGraded, a.Phase())
}

func TestAttempt_UnknownOptionGradesAsIncorrect(t *testing.T) {
	a := attempt.New("", makeDoc("b"))

	out, ok := a.SelectAnswer("definitely-not-an-option")
	require.True(t, ok)
	assert.False(t, out.Correct)
	assert.Equal(t, 0, a.Score())
	assert.Equal(t, attempt.PhaseGraded, a.Phase())
}

func TestAttempt_InvalidTransitionsAreNoOps(t *testing.T) {
	a := attempt.New("", makeDoc("b"))

	// Advance while presenting does nothing.
	require.False(t, a.Advance())
	require.Equal(t, attempt.PhasePresenting, a.Phase())

	_, ok := a.SelectAnswer("b")
	require.True(t, ok)
	require.True(t, a.Advance())
	require.Equal(t, attempt.PhaseFinished, a.Phase())

	// Finished is terminal for answering and advancing.
	_, ok = a.SelectAnswer("b")
	assert.False(t, ok)
	assert.False(t, a.Advance())
	assert.Equal(t, 1, a.Score())
}

func TestAttempt_ResultsOnlyWhenFinished(t *testing.T) {
	a := attempt.New("", makeDoc("b"))

	_, done := a.Results()
	require.False(t, done)

	a.SelectAnswer("b")
	_, done = a.Results()
	require.False(t, done)

	a.Advance()
	_, done = a.Results()
	require.True(t, done)
}

func TestAttempt_Restart(t *testing.T) {
	a := attempt.New("", makeDoc("b", "b"))

	a.SelectAnswer("b")
	a.Advance()
	a.SelectAnswer("b")
	a.Advance()
	require.Equal(t, attempt.PhaseFinished, a.Phase())

	a.Restart()
	require.Equal(t, attempt.PhasePresenting, a.Phase())
	require.Equal(t, 0, a.Score())

	q, index, ok := a.Current()
	require.True(t, ok)
	assert.Equal(t, 0, index)
	assert.Equal(t, 1, q.ID)

	// Restart mid-question works too.
	a.SelectAnswer("a")
	a.Restart()
	assert.Equal(t, attempt.PhasePresenting, a.Phase())
	assert.Equal(t, 0, a.Score())
}

func TestAttempt_PercentageRounding(t *testing.T) {
	tests := map[string]struct {
		correct []string
		answers []string
		want    int
	}{
		"1 of 3 rounds to 33": {
			correct: []string{"a", "a", "a"},
			answers: []string{"a", "b", "b"},
			want:    33,
		},
		"2 of 3 rounds to 67": {
			correct: []string{"a", "a", "a"},
			answers: []string{"a", "a", "b"},
			want:    67,
		},
		"1 of 8 rounds to 13": {
			correct: []string{"a", "a", "a", "a", "a", "a", "a", "a"},
			answers: []string{"a", "b", "b", "b", "b", "b", "b", "b"},
			want:    13,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			a := attempt.New("", makeDoc(tt.correct...))
			for _, ans := range tt.answers {
				a.SelectAnswer(ans)
				a.Advance()
			}

			s, done := a.Results()
			require.True(t, done)
			assert.Equal(t, tt.want, s.Percentage)
		})
	}
}

func TestAttempt_Progress(t *testing.T) {
	a := attempt.New("", makeDoc("a", "a", "a", "a"))
	require.Equal(t, 0.0, a.Progress())

	a.SelectAnswer("a")
	a.Advance()
	require.Equal(t, 0.25, a.Progress())

	a.SelectAnswer("a")
	a.Advance()
	a.SelectAnswer("a")
	a.Advance()
	require.Equal(t, 0.75, a.Progress())

	a.SelectAnswer("a")
	a.Advance()
	require.Equal(t, 1.0, a.Progress())
}

func TestRegistry(t *testing.T) {
	r := attempt.NewRegistry()

	a := attempt.New("quiz-1", makeDoc("a"))
	id := r.Add(a)
	require.NotEmpty(t, id)

	got, ok := r.Get(id)
	require.True(t, ok)
	require.Same(t, a, got)

	_, ok = r.Get("missing")
	require.False(t, ok)

	r.Remove(id)
	_, ok = r.Get(id)
	require.False(t, ok)
}
