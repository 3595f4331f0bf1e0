package resilience

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/predicato/pkg/alert"
)

// BreakerConfig configures a circuit breaker wrapping a remote adapter call.
type BreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ReadyToTripRatio float64
}

// NewBreaker constructs a gobreaker.CircuitBreaker for the named provider.
// OnStateChange fires the alerter when the breaker opens, matching the
// "urgent" alert the teacher's circuit breaker wrapper sends.
func NewBreaker(name string, cfg BreakerConfig, alerter alert.Alerter) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to != gobreaker.StateOpen {
				return
			}
			msg := fmt.Sprintf("circuit breaker %q changed from %s to %s: too many failures", name, from, to)
			slog.Warn(msg)
			if alerter != nil {
				_ = alerter.Alert(fmt.Sprintf("circuit breaker tripped: %s", name), msg)
			}
		},
	}
	return gobreaker.NewCircuitBreaker(st)
}

// Execute runs fn through cb, type-asserting the result back to T.
func Execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
