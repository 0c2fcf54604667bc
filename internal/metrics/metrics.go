// Package metrics exposes prometheus counters of ledger and login activity.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-petr/pet-atm/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ledgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atm",
		Name:      "ledger_operations_total",
		Help:      "Number of ledger operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atm",
		Name:      "login_attempts_total",
		Help:      "Number of PIN attempts by login method and outcome.",
	}, []string{"method", "outcome"})
)

// Outcome returns the label value describing err.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInvalidAccount), errors.Is(err, domain.ErrAccountNotFound):
		return "invalid_account"
	case errors.Is(err, domain.ErrLockedOut):
		return "locked_out"
	case errors.Is(err, domain.ErrAuthFailure):
		return "auth_failure"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}

	return "error"
}

// ObserveOperation counts a finished ledger operation.
func ObserveOperation(operation string, err error) {
	ledgerOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

// ObserveLogin counts a single PIN attempt.
func ObserveLogin(method domain.LoginMethod, err error) {
	loginAttempts.WithLabelValues(string(method), Outcome(err)).Inc()
}

// Handler serves the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
