package learning

import (
	"math"

	"github.com/pkg/errors"
)

// Lesson traversal steps. A session walks intro → rules → examples →
// pre-quiz → quiz; the quiz step keeps its own question cursor and a
// revealed sub-state once an attempt has been scored.
type Step int

const (
	StepIntro Step = iota
	StepRules
	StepExamples
	StepPreQuiz
	StepQuiz
)

// Unanswered marks a quiz position with no selected option.
const Unanswered = -1

var (
	ErrLessonLocked   = errors.New("lesson is locked")
	ErrAnswerRequired = errors.New("an answer is required before moving on")
	ErrInvalidRetry   = errors.New("retry is only allowed after a failed attempt")
	ErrQuizNotActive  = errors.New("the quiz is not active")
	ErrNoSession      = errors.New("no open lesson session")
)

type (
	// Session is the ephemeral, in-memory traversal state of one open lesson
	// for one user. It is owned by a single user session and is never
	// persisted: only a terminal passing result becomes durable, via
	// Service.RecordPass. Discarding a Session has no side effects.
	Session struct {
		LessonID  string `json:"lesson_id"`
		Step      Step   `json:"step"`
		QuizIndex int    `json:"quiz_index"`
		Answers   []int  `json:"answers"`
		Revealed  bool   `json:"revealed"`
		LastScore int    `json:"last_score"`

		questions []Question
	}

	// Result is the outcome of a scored quiz attempt.
	Result struct {
		Score     int  `json:"score"`
		Total     int  `json:"total"`
		Threshold int  `json:"threshold"`
		Passed    bool `json:"passed"`
	}
)

func newSession(lessonID string, questions []Question) *Session {
	answers := make([]int, len(questions))
	for i := range answers {
		answers[i] = Unanswered
	}
	return &Session{
		LessonID:  lessonID,
		Answers:   answers,
		questions: questions,
	}
}

// Questions returns the session's quiz questions, in order.
func (s *Session) Questions() []Question {
	questions := make([]Question, len(s.questions))
	copy(questions, s.questions)
	return questions
}

// Next advances one step. Entering the quiz starts a fresh attempt.
func (s *Session) Next() {
	if s.Step < StepQuiz {
		s.Step++
		if s.Step == StepQuiz {
			s.resetAttempt()
		}
	}
}

// Prev moves back one content step. The intro has nothing before it and the
// pre-quiz screen is a forward-only checkpoint; both are no-ops.
func (s *Session) Prev() {
	if s.Step == StepRules || s.Step == StepExamples {
		s.Step--
	}
}

// SelectAnswer records (or overwrites) the answer at the current question.
func (s *Session) SelectAnswer(option int) error {
	if s.Step != StepQuiz || s.Revealed {
		return ErrQuizNotActive
	}
	if option < 0 || option >= len(s.questions[s.QuizIndex].Options) {
		return errors.Errorf("option %d out of range", option)
	}
	s.Answers[s.QuizIndex] = option
	return nil
}

// AdvanceQuiz moves the cursor to the next question; advancing past the last
// question scores the attempt and reveals the result. The current question
// must be answered first.
func (s *Session) AdvanceQuiz() (revealed bool, err error) {
	if s.Step != StepQuiz || s.Revealed {
		return false, ErrQuizNotActive
	}
	if s.Answers[s.QuizIndex] == Unanswered {
		return false, ErrAnswerRequired
	}
	if s.QuizIndex < len(s.questions)-1 {
		s.QuizIndex++
		return false, nil
	}
	s.LastScore, _ = Score(s.Answers, s.questions)
	s.Revealed = true
	return true, nil
}

// RewindQuiz moves the cursor back one question when possible.
func (s *Session) RewindQuiz() {
	if s.Step == StepQuiz && !s.Revealed && s.QuizIndex > 0 {
		s.QuizIndex--
	}
}

// Retry starts a fresh attempt after a failed one: cursor and answers are
// cleared and the session stays on the quiz step.
func (s *Session) Retry() error {
	if s.Step != StepQuiz || !s.Revealed || s.Passed() {
		return ErrInvalidRetry
	}
	s.resetAttempt()
	return nil
}

func (s *Session) resetAttempt() {
	s.QuizIndex = 0
	s.Revealed = false
	s.LastScore = 0
	for i := range s.Answers {
		s.Answers[i] = Unanswered
	}
}

func (s *Session) Passed() bool {
	return s.LastScore >= PassingScore(len(s.questions))
}

// Result reports the outcome of the last scored attempt; only meaningful
// once Revealed is set.
func (s *Session) Result() Result {
	return Result{
		Score:     s.LastScore,
		Total:     len(s.questions),
		Threshold: PassingScore(len(s.questions)),
		Passed:    s.Passed(),
	}
}

// Score counts the positions where the selected option matches the answer
// key. Unanswered or missing positions never match. It is total: any answer
// sequence yields a score in [0, len(questions)].
func Score(answers []int, questions []Question) (score int, passed bool) {
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.Correct {
			score++
		}
	}
	return score, score >= PassingScore(len(questions))
}

// PassingScore is the minimum number of correct answers needed to pass:
// 70% of the question count, rounded up.
func PassingScore(questionCount int) int {
	return int(math.Ceil(float64(questionCount) * 0.7))
}
