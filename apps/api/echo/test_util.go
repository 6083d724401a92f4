package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/talkoren/kehila/core"
	"github.com/talkoren/kehila/core/learning"
	"github.com/talkoren/kehila/core/user"
	emailsvc "github.com/talkoren/kehila/services/email"
	dummydb "github.com/talkoren/kehila/storage/database/dummy"
)

type testLogger struct{ t *testing.T }

func (l testLogger) Debug(msg string, args ...interface{}) { l.t.Log(msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.t.Log(msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.t.Log(msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.t.Log(msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatal(msg, args) }

type testDeps struct {
	server   Server
	usrRepo  user.Repository
	usrSvc   *user.Service
	lrnSvc   *learning.Service
	lrnStore *learning.MemoryStore
}

func testSection(title string) learning.Section {
	return learning.Section{Title: title, Body: title + " body"}
}

func testLessons() ([]learning.Lesson, map[string][]learning.Question) {
	lessons := make([]learning.Lesson, 0, 2)
	quizzes := make(map[string][]learning.Question, 2)
	for _, id := range []struct{ id, name string }{
		{"lesson1", "First Lesson"},
		{"lesson2", "Second Lesson"},
	} {
		lessons = append(lessons, learning.Lesson{
			ID:          id.id,
			Name:        id.name,
			Description: id.name + " description",
			Intro:       testSection("Intro"),
			Rules:       testSection("Rules"),
			Examples:    testSection("Examples"),
		})
		// the correct option is always the first one
		quizzes[id.id] = []learning.Question{
			{Prompt: "q1", Options: []string{"right", "wrong"}, Correct: 0},
			{Prompt: "q2", Options: []string{"right", "wrong"}, Correct: 0},
			{Prompt: "q3", Options: []string{"right", "wrong"}, Correct: 0},
		}
	}
	return lessons, quizzes
}

func setup(t *testing.T) testDeps {
	t.Helper()

	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewUserRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewService(repo, mailSvc)

	catalog, err := learning.NewCatalog(testLessons())
	require.NoError(t, err)
	store := learning.NewMemoryStore()
	lrnSvc := learning.NewService(catalog, store, testLogger{t})

	srv := NewServer(&Options{
		Address:        ":0",
		DisableReqLogs: true,
		Logger:         testLogger{t},
		MailSvc:        mailSvc,
		UserSvc:        usrSvc,
		LearningSvc:    lrnSvc,
	})
	return testDeps{server: srv, usrRepo: repo, usrSvc: usrSvc, lrnSvc: lrnSvc, lrnStore: store}
}

func createUser(t *testing.T, repo user.Repository, name, uname, email, pwd string, isActive bool) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		require.NoError(t, usr.SetPassword(pwd))
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	require.NoError(t, err)
	return token
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (tt httpTest) run(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()

	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, tt.path, bytes.NewReader(tt.body))
	req.Header.Set("Content-Type", "application/json")
	if tt.token != "" {
		req.Header.Set("Authorization", "Bearer "+tt.token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
	if tt.wantData != nil {
		if ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData); err != nil || !ok {
			t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
		}
	}
	return rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}
