package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolportal_login_attempts_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	webhookOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolportal_webhook_outcomes_total",
		Help: "Payment webhook deliveries by reconciliation outcome.",
	}, []string{"outcome"})
)
