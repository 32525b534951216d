// Package api exposes the quizforge operations over HTTP/JSON.
package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"quizforge/internal/archive"
	"quizforge/internal/attempt"
	"quizforge/internal/domain"
	"quizforge/internal/errors"
	"quizforge/internal/event"
	"quizforge/internal/generate"
	"quizforge/internal/leaderboard"
	"quizforge/internal/quizdoc"
	"quizforge/internal/telemetry"
)

const playerSessionName = "quizforge_player"

type Config struct {
	Router      *gin.Engine
	EventBus    *event.Bus
	Generate    *generate.Service
	Archive     *archive.Service
	Leaderboard *leaderboard.Service
	Attempts    *attempt.Registry
	Sessions    *sessions.CookieStore
}

type API struct {
	eb *event.Bus

	gs *generate.Service
	as *archive.Service
	ls *leaderboard.Service

	attempts *attempt.Registry
	sessions *sessions.CookieStore
}

func New(c Config) *API {
	a := &API{
		eb:       c.EventBus,
		gs:       c.Generate,
		as:       c.Archive,
		ls:       c.Leaderboard,
		attempts: c.Attempts,
		sessions: c.Sessions,
	}

	v1 := c.Router.Group("/v1")

	v1.GET("/player", a.GetPlayer)
	v1.PUT("/player", a.SetPlayer)

	v1.POST("/quizzes/generate", a.GenerateQuiz)
	v1.POST("/quizzes", a.UploadQuiz)
	v1.GET("/quizzes", a.ListQuizzes)
	v1.GET("/quizzes/:id", a.GetQuiz)
	v1.GET("/quizzes/:id/export", a.ExportQuiz)
	v1.GET("/quizzes/:id/leaderboard", a.GetLeaderboard)

	v1.POST("/attempts", a.CreateAttempt)
	v1.GET("/attempts/:id", a.GetAttempt)
	v1.POST("/attempts/:id/answer", a.SubmitAnswer)
	v1.POST("/attempts/:id/advance", a.AdvanceAttempt)
	v1.POST("/attempts/:id/restart", a.RestartAttempt)
	v1.GET("/attempts/:id/results", a.GetResults)

	return a
}

// abortError renders any error through the shared taxonomy. Transport decode
// failures carry a machine-readable reason so the practice client can render
// its dedicated "no usable quiz" state.
func (a *API) abortError(c *gin.Context, err error) {
	e := convert(err)

	body := gin.H{"error": e}
	var de *quizdoc.DecodeError
	if stdAs(err, &de) {
		body["reason"] = "no_usable_quiz"
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), body)
}

type playerResponse struct {
	Name string `json:"name"`
}

func (a *API) GetPlayer(c *gin.Context) {
	c.JSON(http.StatusOK, playerResponse{Name: a.playerName(c)})
}

func (a *API) SetPlayer(c *gin.Context) {
	var req playerResponse
	if err := c.ShouldBindJSON(&req); err != nil {
		a.abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	if req.Name == "" {
		a.abortError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("player name must not be empty")))
		return
	}

	sess, _ := a.sessions.Get(c.Request, playerSessionName)
	sess.Values["name"] = req.Name
	if err := sess.Save(c.Request, c.Writer); err != nil {
		a.abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, playerResponse{Name: req.Name})
}

func (a *API) playerName(c *gin.Context) string {
	sess, err := a.sessions.Get(c.Request, playerSessionName)
	if err != nil {
		return ""
	}

	name, _ := sess.Values["name"].(string)
	return name
}

type attachmentRequest struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	// Data is the file content encoded as standard base64.
	Data string `json:"data"`
}

type generateQuizRequest struct {
	Instructions string             `json:"instructions"`
	Attachment   *attachmentRequest `json:"attachment"`
}

type quizResponse struct {
	QuizID   string               `json:"quiz_id"`
	Document *domain.QuizDocument `json:"document"`
	// QuizData is the percent-encoded handoff parameter for the practice
	// context.
	QuizData string `json:"quiz_data"`
}

func (a *API) GenerateQuiz(c *gin.Context) {
	var req generateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	greq := generate.Request{Instructions: req.Instructions}
	if req.Attachment != nil {
		data, err := base64.StdEncoding.DecodeString(req.Attachment.Data)
		if err != nil {
			a.abortError(c, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("attachment data is not valid base64: %v", err)))
			return
		}

		greq.Attachment = &generate.Attachment{
			Name:     req.Attachment.Name,
			MIMEType: req.Attachment.MIMEType,
			Data:     data,
		}
	}

	caller := a.playerName(c)
	if caller == "" {
		caller = c.ClientIP()
	}

	doc, err := a.gs.Generate(c.Request.Context(), caller, greq)
	if err != nil {
		a.abortError(c, err)
		return
	}

	a.respondAccepted(c, doc)
}

// UploadQuiz accepts a hand-authored or previously exported quiz document.
// The raw body goes through the same parse + validation path as generated
// output.
func (a *API) UploadQuiz(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		a.abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	doc, err := quizdoc.Parse(body)
	if err != nil {
		telemetry.ValidationFailures.Inc()
		a.abortError(c, err)
		return
	}

	a.respondAccepted(c, doc)
}

func (a *API) respondAccepted(c *gin.Context, doc *domain.QuizDocument) {
	id, err := a.as.Save(c.Request.Context(), doc)
	if err != nil {
		a.abortError(c, err)
		return
	}

	a.eb.Publish(c.Request.Context(), domain.EventQuizAccepted{
		QuizID:   id,
		Document: *doc,
	})

	param, err := quizdoc.EncodeParam(doc)
	if err != nil {
		a.abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, quizResponse{
		QuizID:   id,
		Document: doc,
		QuizData: param,
	})
}

type listQuizzesResponse struct {
	Quizzes []quizSummary `json:"quizzes"`
}

type quizSummary struct {
	QuizID        string `json:"quiz_id"`
	QuizTitle     string `json:"quiz_title"`
	QuestionCount int    `json:"question_count"`
	CreateTime    string `json:"create_time"`
}

func (a *API) ListQuizzes(c *gin.Context) {
	entries, err := a.as.List(c.Request.Context())
	if err != nil {
		a.abortError(c, err)
		return
	}

	resp := listQuizzesResponse{Quizzes: make([]quizSummary, 0, len(entries))}
	for _, e := range entries {
		resp.Quizzes = append(resp.Quizzes, quizSummary{
			QuizID:        e.QuizID,
			QuizTitle:     e.QuizTitle,
			QuestionCount: e.QuestionCount,
			CreateTime:    e.CreateTime.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) GetQuiz(c *gin.Context) {
	doc, err := a.as.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.abortError(c, err)
		return
	}

	param, err := quizdoc.EncodeParam(doc)
	if err != nil {
		a.abortError(c, err)
		return
	}

	c.JSON(http.StatusOK, quizResponse{
		QuizID:   c.Param("id"),
		Document: doc,
		QuizData: param,
	})
}

func (a *API) ExportQuiz(c *gin.Context) {
	filename, body, err := a.as.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.abortError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

type leaderboardResponse struct {
	QuizID  string             `json:"quiz_id"`
	Entries []leaderboardEntry `json:"entries"`
}

type leaderboardEntry struct {
	Player     string  `json:"player"`
	Percentage float64 `json:"percentage"`
}

func (a *API) GetLeaderboard(c *gin.Context) {
	l, err := a.ls.GetLeaderboard(c.Request.Context(), leaderboard.GetLeaderboardRequest{
		QuizID: c.Param("id"),
	})
	if err != nil {
		a.abortError(c, err)
		return
	}

	resp := leaderboardResponse{
		QuizID:  l.QuizID,
		Entries: make([]leaderboardEntry, 0, len(l.Entries)),
	}
	for _, e := range l.Entries {
		resp.Entries = append(resp.Entries, leaderboardEntry{
			Player:     e.Player,
			Percentage: e.Percentage,
		})
	}

	c.JSON(http.StatusOK, resp)
}
