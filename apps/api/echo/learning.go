package echoapi

import (
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/talkoren/kehila/core"
	"github.com/talkoren/kehila/core/learning"
	"github.com/talkoren/kehila/core/user"
)

type learningApi struct {
	svc     *learning.Service
	usrSvc  *user.Service
	mailSvc core.EmailService
}

func registerLearningAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *learning.Service,
	usrSvc *user.Service,
	mailSvc core.EmailService,
) {
	api := learningApi{svc: svc, usrSvc: usrSvc, mailSvc: mailSvc}

	lg := g.Group("/learning", jwt)

	lg.GET("/lessons", api.lessons)
	lg.POST("/lessons/:id/open", api.open)

	sg := lg.Group("/session")
	sg.GET("", api.session)
	sg.DELETE("", api.close)
	sg.POST("/next", api.next)
	sg.POST("/prev", api.prev)
	sg.POST("/answer", api.answer)
	sg.POST("/quiz/next", api.quizNext)
	sg.POST("/quiz/prev", api.quizPrev)
	sg.POST("/retry", api.retry)
}

// Handlers

func (api *learningApi) lessons(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ov := api.svc.Overview(ctx.Request().Context(), claims.Subject)

	resp := OverviewResponse{
		Lessons:   make([]LessonResponse, 0, len(ov.Lessons)),
		Completed: ov.Completed,
		Total:     ov.Total,
		Percent:   ov.Percent,
		Degraded:  ov.Degraded,
	}
	for _, ls := range ov.Lessons {
		resp.Lessons = append(resp.Lessons, LessonResponse{
			ID:            ls.Lesson.ID,
			Name:          ls.Lesson.Name,
			Description:   ls.Lesson.Description,
			Unlocked:      ls.Unlocked,
			Completed:     ls.Completed,
			QuestionCount: ls.Questions,
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *learningApi) open(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess, err := api.svc.Open(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return err
	}
	return api.respond(ctx, sess, nil)
}

func (api *learningApi) session(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	return api.respond(ctx, sess, nil)
}

func (api *learningApi) close(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	api.svc.Close(claims.Subject)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *learningApi) next(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	sess.Next()
	return api.respond(ctx, sess, nil)
}

func (api *learningApi) prev(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	sess.Prev()
	return api.respond(ctx, sess, nil)
}

func (api *learningApi) answer(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}

	var data AnswerRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AnswerRequest")
	}
	if data.Option == nil {
		return learning.ErrAnswerRequired
	}
	if err := sess.SelectAnswer(*data.Option); err != nil {
		if errors.Cause(err) == learning.ErrQuizNotActive {
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: "option", Error: err.Error()})
	}
	return api.respond(ctx, sess, nil)
}

// quizNext advances the quiz cursor. Advancing past the last question scores
// the attempt; a passing score is persisted right here so a crash afterwards
// cannot lose an earned completion.
func (api *learningApi) quizNext(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sess, err := api.svc.Session(claims.Subject)
	if err != nil {
		return err
	}

	revealed, err := sess.AdvanceQuiz()
	if err != nil {
		return err
	}
	if !(revealed && sess.Passed()) {
		return api.respond(ctx, sess, nil)
	}

	update, err := api.svc.RecordPass(ctx.Request().Context(), claims.Subject, sess)
	if err != nil {
		return errors.Wrap(err, "recording passed quiz")
	}
	if update.AllCompleted {
		api.congratulate(ctx, claims)
	}
	return api.respond(ctx, sess, &update)
}

func (api *learningApi) quizPrev(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	sess.RewindQuiz()
	return api.respond(ctx, sess, nil)
}

func (api *learningApi) retry(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	if err := sess.Retry(); err != nil {
		return err
	}
	return api.respond(ctx, sess, nil)
}

// Helpers

func (api *learningApi) getSession(ctx echo.Context) (*learning.Session, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context claims")
	}
	return api.svc.Session(claims.Subject)
}

func (api *learningApi) congratulate(ctx echo.Context, claims Claims) {
	usr, err := getContextUser(ctx, api.usrSvc, claims)
	if err != nil || usr.Email == "" {
		return
	}
	api.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "You completed the Learning Center!",
		TemplateName: "learning-complete",
		TemplateData: struct{ Name string }{usr.Name},
	})
}

func (api *learningApi) respond(ctx echo.Context, sess *learning.Session, update *learning.CompletionUpdate) error {
	lesson, err := api.svc.Catalog().Lesson(sess.LessonID)
	if err != nil {
		return errors.Wrap(err, "looking up session lesson")
	}

	resp := SessionResponse{
		LessonID:  sess.LessonID,
		Step:      sess.Step,
		QuizIndex: sess.QuizIndex,
		Answers:   sess.Answers,
		Revealed:  sess.Revealed,
		Lesson:    lesson,
	}
	// the answer key never leaves the server
	for _, q := range sess.Questions() {
		resp.Questions = append(resp.Questions, QuestionResponse{Prompt: q.Prompt, Options: q.Options})
	}
	if sess.Revealed {
		result := sess.Result()
		resp.Result = &result
	}
	if update != nil {
		resp.AllCompleted = update.AllCompleted
		if update.SaveErr != nil {
			resp.SaveFailed = update.SaveErr.LessonIDs()
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

type (
	LessonResponse struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Description   string `json:"description"`
		Unlocked      bool   `json:"unlocked"`
		Completed     bool   `json:"completed"`
		QuestionCount int    `json:"question_count"`
	}

	OverviewResponse struct {
		Lessons   []LessonResponse `json:"lessons"`
		Completed int              `json:"completed"`
		Total     int              `json:"total"`
		Percent   int              `json:"percent"`
		Degraded  bool             `json:"degraded,omitempty"`
	}

	QuestionResponse struct {
		Prompt  string   `json:"prompt"`
		Options []string `json:"options"`
	}

	SessionResponse struct {
		LessonID  string             `json:"lesson_id"`
		Step      learning.Step      `json:"step"`
		QuizIndex int                `json:"quiz_index"`
		Answers   []int              `json:"answers"`
		Revealed  bool               `json:"revealed"`
		Lesson    learning.Lesson    `json:"lesson"`
		Questions []QuestionResponse `json:"questions"`
		Result    *learning.Result   `json:"result,omitempty"`

		AllCompleted bool     `json:"all_completed,omitempty"`
		SaveFailed   []string `json:"save_failed,omitempty"`
	}

	AnswerRequest struct {
		Option *int `json:"option"`
	}
)
