package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkoren/kehila/core/learning"
)

func Test_learningApi_lessons(t *testing.T) {
	deps := setup(t)
	usr := createUser(t, deps.usrRepo, "Jane", "janedoe", "jane@test.il", "V3ry$ecret!x", true)
	token := getToken(t, usr)

	tt := httpTest{path: "/v1/learning/lessons", wantCode: http.StatusUnauthorized}
	tt.run(t, deps.server)

	tt = httpTest{path: "/v1/learning/lessons", token: token}
	rec := tt.run(t, deps.server)

	var body OverviewResponse
	decodeBody(t, rec, &body)
	require.Len(t, body.Lessons, 2)
	assert.Equal(t, 0, body.Completed)
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 0, body.Percent)
	assert.False(t, body.Degraded)

	assert.Equal(t, "lesson1", body.Lessons[0].ID)
	assert.True(t, body.Lessons[0].Unlocked, "first lesson is always unlocked")
	assert.False(t, body.Lessons[1].Unlocked, "second lesson locked until the first is completed")
	assert.Equal(t, 3, body.Lessons[0].QuestionCount)
}

func Test_learningApi_open(t *testing.T) {
	deps := setup(t)
	usr := createUser(t, deps.usrRepo, "Jane", "janedoe", "jane@test.il", "V3ry$ecret!x", true)
	token := getToken(t, usr)

	tests := []httpTest{
		{name: "unknown lesson", path: "/v1/learning/lessons/nope/open", wantCode: http.StatusNotFound},
		{name: "locked lesson", path: "/v1/learning/lessons/lesson2/open", wantCode: http.StatusForbidden},
		{name: "ok", path: "/v1/learning/lessons/lesson1/open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.token = token
			rec := tt.run(t, deps.server)

			if rec.Code == http.StatusOK {
				var body SessionResponse
				decodeBody(t, rec, &body)
				assert.Equal(t, "lesson1", body.LessonID)
				assert.Equal(t, learning.StepIntro, body.Step)
				assert.Equal(t, []int{-1, -1, -1}, body.Answers)
				require.Len(t, body.Questions, 3)
				assert.NotContains(t, rec.Body.String(), "correct", "the answer key never leaves the server")
			}
		})
	}
}

func Test_learningApi_sessionLifecycle(t *testing.T) {
	deps := setup(t)
	usr := createUser(t, deps.usrRepo, "Jane", "janedoe", "jane@test.il", "V3ry$ecret!x", true)
	token := getToken(t, usr)

	post := func(t *testing.T, path string, wantCode int, body ...[]byte) *SessionResponse {
		t.Helper()
		tt := httpTest{method: http.MethodPost, path: path, token: token, wantCode: wantCode}
		if len(body) > 0 {
			tt.body = body[0]
		}
		rec := tt.run(t, deps.server)
		if rec.Code != http.StatusOK {
			return nil
		}
		resp := new(SessionResponse)
		decodeBody(t, rec, resp)
		return resp
	}
	answer := func(option int) []byte {
		return marshallObj(t, map[string]int{"option": option})
	}

	// no session yet
	httpTest{path: "/v1/learning/session", token: token, wantCode: http.StatusNotFound}.run(t, deps.server)

	post(t, "/v1/learning/lessons/lesson1/open", http.StatusOK)

	// walk the content steps: intro -> rules -> examples -> pre-quiz -> quiz
	resp := post(t, "/v1/learning/session/next", http.StatusOK)
	assert.Equal(t, learning.StepRules, resp.Step)
	resp = post(t, "/v1/learning/session/prev", http.StatusOK)
	assert.Equal(t, learning.StepIntro, resp.Step)
	for i := 0; i < 4; i++ {
		resp = post(t, "/v1/learning/session/next", http.StatusOK)
	}
	require.Equal(t, learning.StepQuiz, resp.Step)

	// answering is required before advancing
	post(t, "/v1/learning/session/quiz/next", http.StatusBadRequest)

	// fail the quiz: option 1 is always wrong in the test catalog
	for i := 0; i < 3; i++ {
		post(t, "/v1/learning/session/answer", http.StatusOK, answer(1))
		resp = post(t, "/v1/learning/session/quiz/next", http.StatusOK)
	}
	require.True(t, resp.Revealed)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 0, resp.Result.Score)
	assert.False(t, resp.Result.Passed)
	assert.False(t, resp.AllCompleted)

	// a failed attempt is never persisted
	snap, err := deps.lrnStore.Load(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.False(t, snap.Get("lesson1").Completed)

	// retry and pass
	resp = post(t, "/v1/learning/session/retry", http.StatusOK)
	assert.False(t, resp.Revealed)
	assert.Equal(t, []int{-1, -1, -1}, resp.Answers)
	for i := 0; i < 3; i++ {
		post(t, "/v1/learning/session/answer", http.StatusOK, answer(0))
		resp = post(t, "/v1/learning/session/quiz/next", http.StatusOK)
	}
	require.True(t, resp.Revealed)
	assert.True(t, resp.Result.Passed)
	assert.Equal(t, 3, resp.Result.Score)
	assert.Equal(t, 3, resp.Result.Threshold)
	assert.Empty(t, resp.SaveFailed)

	// retry after a pass is invalid
	post(t, "/v1/learning/session/retry", http.StatusBadRequest)

	// the pass is durable and unlocks the next lesson
	snap, err = deps.lrnStore.Load(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.True(t, snap.Get("lesson1").Completed)
	assert.True(t, snap.Get("lesson1").QuizCompleted)
	assert.Equal(t, 3, snap.Get("lesson1").QuizScore)

	rec := httpTest{path: "/v1/learning/lessons", token: token}.run(t, deps.server)
	var ov OverviewResponse
	decodeBody(t, rec, &ov)
	assert.Equal(t, 1, ov.Completed)
	assert.Equal(t, 50, ov.Percent)
	assert.True(t, ov.Lessons[1].Unlocked)

	// discard the session
	httpTest{method: http.MethodDelete, path: "/v1/learning/session", token: token, wantCode: http.StatusNoContent}.run(t, deps.server)
	httpTest{path: "/v1/learning/session", token: token, wantCode: http.StatusNotFound}.run(t, deps.server)
}

func Test_learningApi_completingAllLessons(t *testing.T) {
	deps := setup(t)
	usr := createUser(t, deps.usrRepo, "Jane", "janedoe", "jane@test.il", "V3ry$ecret!x", true)
	token := getToken(t, usr)

	passLesson := func(t *testing.T, id string) *SessionResponse {
		t.Helper()
		httpTest{method: http.MethodPost, path: "/v1/learning/lessons/" + id + "/open", token: token}.run(t, deps.server)
		for i := 0; i < 4; i++ {
			httpTest{method: http.MethodPost, path: "/v1/learning/session/next", token: token}.run(t, deps.server)
		}
		var resp SessionResponse
		for i := 0; i < 3; i++ {
			httpTest{
				method: http.MethodPost,
				path:   "/v1/learning/session/answer",
				token:  token,
				body:   marshallObj(t, map[string]int{"option": 0}),
			}.run(t, deps.server)
			rec := httpTest{method: http.MethodPost, path: "/v1/learning/session/quiz/next", token: token}.run(t, deps.server)
			decodeBody(t, rec, &resp)
		}
		return &resp
	}

	resp := passLesson(t, "lesson1")
	assert.False(t, resp.AllCompleted)

	resp = passLesson(t, "lesson2")
	assert.True(t, resp.AllCompleted, "finishing the last lesson reports full completion")
}
