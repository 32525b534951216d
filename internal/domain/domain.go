package domain

import "time"

// QuizDocument is the accepted form of a quiz. A value of this type only
// exists after validation; code receiving one may rely on the schema
// invariants (non-empty questions, >=2 options per question, unique option
// ids, correctOptionId present among them).
type QuizDocument struct {
	QuizTitle string     `json:"quizTitle"`
	Questions []Question `json:"questions"`
}

type Question struct {
	// ID is intended to be sequential starting at 1. Uniqueness across the
	// document is advisory and not enforced.
	ID              int      `json:"id"`
	QuestionText    string   `json:"questionText"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId"`
	Explanation     string   `json:"explanation"`
}

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Result is the outcome of a finished attempt.
type Result struct {
	QuizID     string
	QuizTitle  string
	Player     string
	Score      int
	Total      int
	Percentage int
	FinishTime time.Time
}

// ArchiveEntry describes a stored quiz document without its questions.
type ArchiveEntry struct {
	QuizID        string
	QuizTitle     string
	QuestionCount int
	CreateTime    time.Time
}

// Leaderboard lists players and their best percentage for one quiz.
// Entries are sorted by percentage in descending order.
type Leaderboard struct {
	QuizID  string
	Entries []LeaderboardEntry
}

type LeaderboardEntry struct {
	Player     string
	Percentage float64
}
