package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quizforge/internal/attempt"
	"quizforge/internal/domain"
	"quizforge/internal/errors"
	"quizforge/internal/quizdoc"
	"quizforge/internal/telemetry"
)

type createAttemptRequest struct {
	// QuizID loads a stored document from the archive.
	QuizID string `json:"quiz_id"`
}

// CreateAttempt starts a practice run. The quiz comes either from the
// quizData query parameter (the untrusted handoff channel, re-validated in
// full) or from the archive by id.
func (a *API) CreateAttempt(c *gin.Context) {
	var (
		quizID string
		doc    *domain.QuizDocument
		err    error
	)

	if param := c.Query("quizData"); param != "" {
		doc, err = quizdoc.DecodeParam(param)
		if err != nil {
			telemetry.ValidationFailures.Inc()
			a.abortError(c, err)
			return
		}
	} else {
		var req createAttemptRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.QuizID == "" {
			a.abortError(c, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("either a quizData parameter or a quiz_id is required")))
			return
		}

		quizID = req.QuizID
		doc, err = a.as.Get(c.Request.Context(), quizID)
		if err != nil {
			a.abortError(c, err)
			return
		}
	}

	at := attempt.NewForPlayer(quizID, a.playerName(c), doc)
	id := a.attempts.Add(at)

	c.JSON(http.StatusOK, a.attemptView(id, at))
}

type attemptView struct {
	AttemptID string  `json:"attempt_id"`
	QuizTitle string  `json:"quiz_title"`
	Phase     string  `json:"phase"`
	Score     int     `json:"score"`
	Total     int     `json:"total"`
	Progress  float64 `json:"progress"`

	Question *questionView `json:"question,omitempty"`
	Graded   *gradedView   `json:"graded,omitempty"`
}

// questionView withholds the correct option and the explanation; those are
// revealed only through gradedView.
type questionView struct {
	Number       int          `json:"number"`
	QuestionText string       `json:"question_text"`
	Options      []optionView `json:"options"`
}

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type gradedView struct {
	ChosenOptionID  string `json:"chosen_option_id"`
	Correct         bool   `json:"correct"`
	CorrectOptionID string `json:"correct_option_id"`
	Explanation     string `json:"explanation"`
}

func (a *API) attemptView(id string, at *attempt.Attempt) attemptView {
	v := attemptView{
		AttemptID: id,
		QuizTitle: at.Title(),
		Phase:     string(at.Phase()),
		Score:     at.Score(),
		Total:     at.Total(),
		Progress:  at.Progress(),
	}

	if q, index, ok := at.Current(); ok {
		qv := &questionView{
			Number:       index + 1,
			QuestionText: q.QuestionText,
			Options:      make([]optionView, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			qv.Options = append(qv.Options, optionView{ID: o.ID, Text: o.Text})
		}
		v.Question = qv

		if chosen, correct, graded := at.Chosen(); graded {
			v.Graded = &gradedView{
				ChosenOptionID:  chosen,
				Correct:         correct,
				CorrectOptionID: q.CorrectOptionID,
				Explanation:     q.Explanation,
			}
		}
	}

	return v
}

func (a *API) getAttempt(c *gin.Context) (string, *attempt.Attempt, bool) {
	id := c.Param("id")
	at, ok := a.attempts.Get(id)
	if !ok {
		a.abortError(c, errors.New(errors.CodeNotFound,
			errors.WithMessagef("attempt not found: %s", id)))
		return "", nil, false
	}

	return id, at, true
}

func (a *API) GetAttempt(c *gin.Context) {
	id, at, ok := a.getAttempt(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, a.attemptView(id, at))
}

type submitAnswerRequest struct {
	OptionID string `json:"option_id"`
}

// SubmitAnswer grades the chosen option. A repeated submission while the
// question is already graded is answered with the current view unchanged,
// mirroring the state machine's no-op semantics.
func (a *API) SubmitAnswer(c *gin.Context) {
	id, at, ok := a.getAttempt(c)
	if !ok {
		return
	}

	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.abortError(c, errors.New(errors.CodeInvalidArgument, errors.WithCause(err)))
		return
	}

	at.SelectAnswer(req.OptionID)

	c.JSON(http.StatusOK, a.attemptView(id, at))
}

func (a *API) AdvanceAttempt(c *gin.Context) {
	id, at, ok := a.getAttempt(c)
	if !ok {
		return
	}

	moved := at.Advance()

	if moved && at.Phase() == attempt.PhaseFinished {
		telemetry.AttemptsFinished.Inc()

		if s, done := at.Results(); done {
			a.eb.Publish(c.Request.Context(), domain.EventAttemptFinished{
				Result: domain.Result{
					QuizID:     at.QuizID(),
					QuizTitle:  at.Title(),
					Player:     at.Player(),
					Score:      s.Score,
					Total:      s.Total,
					Percentage: s.Percentage,
					FinishTime: time.Now(),
				},
			})
		}
	}

	c.JSON(http.StatusOK, a.attemptView(id, at))
}

func (a *API) RestartAttempt(c *gin.Context) {
	id, at, ok := a.getAttempt(c)
	if !ok {
		return
	}

	at.Restart()

	c.JSON(http.StatusOK, a.attemptView(id, at))
}

type resultsResponse struct {
	Score      int `json:"score"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

func (a *API) GetResults(c *gin.Context) {
	_, at, ok := a.getAttempt(c)
	if !ok {
		return
	}

	s, done := at.Results()
	if !done {
		a.abortError(c, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("attempt is not finished")))
		return
	}

	c.JSON(http.StatusOK, resultsResponse{
		Score:      s.Score,
		Total:      s.Total,
		Percentage: s.Percentage,
	})
}
