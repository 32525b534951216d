package leaderboard

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quizforge/internal/domain"
	"quizforge/internal/errors"
	"quizforge/internal/event"
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
}

// Service keeps a per-quiz ranking of players by their best attempt
// percentage in a Redis sorted set.
type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	s.eb.Subscribe(domain.EventNameAttemptFinished, func(ctx context.Context, e event.Event) error {
		return s.RecordResult(ctx, e.(domain.EventAttemptFinished))
	})

	return s
}

type GetLeaderboardRequest struct {
	QuizID string
}

// GetLeaderboard returns all ranked players for a quiz, best first.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.leaderboardKey(req.QuizID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("leaderboard not found: quiz=%s", req.QuizID))
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.LeaderboardEntry{
			Player:     z.Member.(string),
			Percentage: z.Score,
		})
	}

	return &domain.Leaderboard{
		QuizID:  req.QuizID,
		Entries: entries,
	}, nil
}

// RecordResult stores a finished attempt's percentage. Only a player's best
// result survives; a weaker retry never lowers their ranking.
func (s *Service) RecordResult(ctx context.Context, e domain.EventAttemptFinished) error {
	r := e.Result
	if r.Player == "" || r.QuizID == "" {
		// Anonymous practice or an unarchived quiz, nothing to rank.
		return nil
	}

	if err := s.redis.ZAddGT(ctx, s.leaderboardKey(r.QuizID), redis.Z{
		Score:  float64(r.Percentage),
		Member: r.Player,
	}).Err(); err != nil {
		return fmt.Errorf("record result: %w", err)
	}

	return nil
}

func (s *Service) leaderboardKey(quizID string) string {
	return fmt.Sprintf("%s:%s:leaderboard", s.prefix, quizID)
}
