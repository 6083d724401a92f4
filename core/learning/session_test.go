package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassingScore(t *testing.T) {
	tests := []struct {
		questions int
		want      int
	}{
		{0, 0},
		{1, 1},
		{3, 3},  // ceil(2.1)
		{5, 4},  // ceil(3.5)
		{10, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PassingScore(tt.questions), "questions=%d", tt.questions)
	}
}

func TestScore(t *testing.T) {
	questions := testQuestions(3) // correct answers: 0, 1, 2

	tests := []struct {
		name       string
		answers    []int
		wantScore  int
		wantPassed bool
	}{
		{"all correct", []int{0, 1, 2}, 3, true},
		{"one wrong fails at 3 questions", []int{0, 1, 3}, 2, false},
		{"all wrong", []int{3, 3, 3}, 0, false},
		{"unanswered never matches", []int{Unanswered, 1, 2}, 2, false},
		{"short answer slice", []int{0}, 1, false},
		{"nil answers", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, passed := Score(tt.answers, questions)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantPassed, passed)
		})
	}
}

func TestSession_contentSteps(t *testing.T) {
	sess := newSession("lesson1", testQuestions(3))
	require.Equal(t, StepIntro, sess.Step)

	sess.Prev() // no-op at intro
	assert.Equal(t, StepIntro, sess.Step)

	sess.Next()
	assert.Equal(t, StepRules, sess.Step)
	sess.Next()
	assert.Equal(t, StepExamples, sess.Step)
	sess.Prev()
	assert.Equal(t, StepRules, sess.Step)
	sess.Next()
	sess.Next()
	assert.Equal(t, StepPreQuiz, sess.Step)

	sess.Prev() // pre-quiz is forward-only
	assert.Equal(t, StepPreQuiz, sess.Step)

	sess.Next()
	assert.Equal(t, StepQuiz, sess.Step)
	sess.Next() // no step past the quiz
	assert.Equal(t, StepQuiz, sess.Step)
}

func toQuiz(t *testing.T, sess *Session) {
	t.Helper()
	for sess.Step < StepQuiz {
		sess.Next()
	}
}

func TestSession_quizRequiresAnswer(t *testing.T) {
	sess := newSession("lesson1", testQuestions(3))
	toQuiz(t, sess)

	_, err := sess.AdvanceQuiz()
	assert.Equal(t, ErrAnswerRequired, err)
	assert.Equal(t, 0, sess.QuizIndex)

	require.NoError(t, sess.SelectAnswer(1))
	revealed, err := sess.AdvanceQuiz()
	require.NoError(t, err)
	assert.False(t, revealed)
	assert.Equal(t, 1, sess.QuizIndex)
}

func TestSession_quizRewindKeepsAnswers(t *testing.T) {
	sess := newSession("lesson1", testQuestions(3))
	toQuiz(t, sess)

	sess.RewindQuiz() // no-op at first question
	assert.Equal(t, 0, sess.QuizIndex)

	require.NoError(t, sess.SelectAnswer(2))
	_, err := sess.AdvanceQuiz()
	require.NoError(t, err)

	sess.RewindQuiz()
	assert.Equal(t, 0, sess.QuizIndex)
	assert.Equal(t, 2, sess.Answers[0], "answer survives rewind")

	// overwrite is allowed
	require.NoError(t, sess.SelectAnswer(0))
	assert.Equal(t, 0, sess.Answers[0])
}

func TestSession_passAndReveal(t *testing.T) {
	sess := newSession("lesson1", testQuestions(3)) // correct: 0, 1, 2
	toQuiz(t, sess)

	for _, answer := range []int{0, 1, 2} {
		require.NoError(t, sess.SelectAnswer(answer))
		_, err := sess.AdvanceQuiz()
		require.NoError(t, err)
	}

	assert.True(t, sess.Revealed)
	assert.True(t, sess.Passed())
	assert.Equal(t, Result{Score: 3, Total: 3, Threshold: 3, Passed: true}, sess.Result())

	// once revealed, the attempt is frozen
	assert.Equal(t, ErrQuizNotActive, sess.SelectAnswer(0))
	_, err := sess.AdvanceQuiz()
	assert.Equal(t, ErrQuizNotActive, err)

	// retry after a pass is invalid
	assert.Equal(t, ErrInvalidRetry, sess.Retry())
}

func TestSession_failAndRetry(t *testing.T) {
	sess := newSession("lesson1", testQuestions(3)) // correct: 0, 1, 2
	toQuiz(t, sess)

	// retry before any scored attempt is invalid
	assert.Equal(t, ErrInvalidRetry, sess.Retry())

	for _, answer := range []int{0, 0, 0} {
		require.NoError(t, sess.SelectAnswer(answer))
		_, err := sess.AdvanceQuiz()
		require.NoError(t, err)
	}

	require.True(t, sess.Revealed)
	assert.False(t, sess.Passed())
	assert.Equal(t, Result{Score: 1, Total: 3, Threshold: 3, Passed: false}, sess.Result())

	require.NoError(t, sess.Retry())
	assert.Equal(t, StepQuiz, sess.Step, "retry stays on the quiz step")
	assert.False(t, sess.Revealed)
	assert.Equal(t, 0, sess.QuizIndex)
	assert.Equal(t, 0, sess.LastScore)
	for i, a := range sess.Answers {
		assert.Equal(t, Unanswered, a, "answer %d cleared", i)
	}
}

func TestSession_selectAnswerOutOfRange(t *testing.T) {
	sess := newSession("lesson1", testQuestions(3)) // 4 options each
	toQuiz(t, sess)

	assert.Error(t, sess.SelectAnswer(4))
	assert.Error(t, sess.SelectAnswer(-1))
	assert.NoError(t, sess.SelectAnswer(3))
}

func TestSession_quizGuardsOutsideQuizStep(t *testing.T) {
	sess := newSession("lesson1", testQuestions(3))

	assert.Equal(t, ErrQuizNotActive, sess.SelectAnswer(0))
	_, err := sess.AdvanceQuiz()
	assert.Equal(t, ErrQuizNotActive, err)
	assert.Equal(t, ErrInvalidRetry, sess.Retry())
}
