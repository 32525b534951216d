// Package attempt drives a single run through a validated quiz document:
// question presentation, answer locking, scoring, and results.
package attempt

import (
	"sync"

	"github.com/shopspring/decimal"

	"quizforge/internal/domain"
)

type Phase string

const (
	// PhasePresenting shows the current question, unanswered.
	PhasePresenting Phase = "presenting"
	// PhaseGraded shows the current question with its graded answer.
	PhaseGraded Phase = "graded"
	// PhaseFinished means all questions are answered and results are computable.
	PhaseFinished Phase = "finished"
)

// Attempt is one run through a quiz document. The document is owned by the
// attempt for its lifetime and is never re-validated. All transitions from an
// invalid phase are safe no-ops.
type Attempt struct {
	mu sync.Mutex

	quizID string
	player string
	doc    *domain.QuizDocument

	phase         Phase
	index         int
	score         int
	chosen        string
	chosenCorrect bool
}

// Outcome reports how a graded answer turned out, for rendering.
type Outcome struct {
	Correct         bool
	CorrectOptionID string
	Explanation     string
	Score           int
}

// Summary is the result of a finished attempt.
type Summary struct {
	Score      int
	Total      int
	Percentage int
}

// New starts a fresh attempt at the first question of an accepted document.
func New(quizID string, doc *domain.QuizDocument) *Attempt {
	return &Attempt{
		quizID: quizID,
		doc:    doc,
		phase:  PhasePresenting,
	}
}

// NewForPlayer starts a fresh attempt attributed to a player, for ranking.
func NewForPlayer(quizID, player string, doc *domain.QuizDocument) *Attempt {
	a := New(quizID, doc)
	a.player = player
	return a
}

func (a *Attempt) QuizID() string { return a.quizID }

func (a *Attempt) Player() string { return a.player }

func (a *Attempt) Title() string { return a.doc.QuizTitle }

func (a *Attempt) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

func (a *Attempt) Score() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.score
}

func (a *Attempt) Total() int { return len(a.doc.Questions) }

// Current returns the question being presented or graded. ok is false once
// the attempt is finished.
func (a *Attempt) Current() (q domain.Question, index int, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase == PhaseFinished {
		return domain.Question{}, 0, false
	}

	return a.doc.Questions[a.index], a.index, true
}

// SelectAnswer grades the chosen option against the current question. It is
// accepted only while presenting; a repeated call in the graded phase is a
// no-op and never double-counts the score. An option id not present among
// the question's options grades as an ordinary incorrect answer.
func (a *Attempt) SelectAnswer(optionID string) (Outcome, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhasePresenting {
		return Outcome{}, false
	}

	q := a.doc.Questions[a.index]
	correct := optionID == q.CorrectOptionID
	if correct {
		a.score++
	}

	a.phase = PhaseGraded
	a.chosen = optionID
	a.chosenCorrect = correct

	return Outcome{
		Correct:         correct,
		CorrectOptionID: q.CorrectOptionID,
		Explanation:     q.Explanation,
		Score:           a.score,
	}, true
}

// Chosen reports the graded choice for the current question.
func (a *Attempt) Chosen() (optionID string, correct bool, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseGraded {
		return "", false, false
	}

	return a.chosen, a.chosenCorrect, true
}

// Advance moves past a graded question, either to the next question or to
// the finished phase. Accepted only while graded.
func (a *Attempt) Advance() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseGraded {
		return false
	}

	if a.index+1 < len(a.doc.Questions) {
		a.index++
		a.phase = PhasePresenting
		a.chosen = ""
		a.chosenCorrect = false
		return true
	}

	a.phase = PhaseFinished
	return true
}

// Restart returns to the first question over the same document. Valid from
// any phase.
func (a *Attempt) Restart() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.phase = PhasePresenting
	a.index = 0
	a.score = 0
	a.chosen = ""
	a.chosenCorrect = false
}

// Results is valid only once the attempt is finished.
func (a *Attempt) Results() (Summary, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != PhaseFinished {
		return Summary{}, false
	}

	return Summary{
		Score:      a.score,
		Total:      len(a.doc.Questions),
		Percentage: percentage(a.score, len(a.doc.Questions)),
	}, true
}

// Progress is the fraction of questions passed, observational only. It is 0
// at the first question and reaches 1 only when finished.
func (a *Attempt) Progress() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := len(a.doc.Questions)
	if total == 0 {
		return 0
	}

	if a.phase == PhaseFinished {
		return 1
	}

	return float64(a.index) / float64(total)
}

func percentage(score, total int) int {
	if total == 0 {
		return 0
	}

	p := decimal.NewFromInt(int64(score * 100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(0)

	return int(p.IntPart())
}
