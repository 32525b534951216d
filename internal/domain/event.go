package domain

const (
	EventNameQuizAccepted    = "quiz.accepted"
	EventNameAttemptFinished = "attempt.finished"
)

type EventQuizAccepted struct {
	QuizID   string
	Document QuizDocument
}

func (EventQuizAccepted) Name() string { return EventNameQuizAccepted }

type EventAttemptFinished struct {
	Result Result
}

func (EventAttemptFinished) Name() string { return EventNameAttemptFinished }
