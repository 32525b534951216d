package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerateRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizforge_generate_requests_total",
		Help: "Quiz generation requests reaching a backend.",
	})

	GenerateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizforge_generate_failures_total",
		Help: "Quiz generation failures by reason.",
	}, []string{"reason"})

	ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizforge_validation_failures_total",
		Help: "Quiz documents rejected by validation.",
	})

	AttemptsFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizforge_attempts_finished_total",
		Help: "Quiz attempts that reached the finished phase.",
	})
)
