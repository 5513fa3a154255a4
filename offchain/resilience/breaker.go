// Package resilience wraps a LinkResolver with a per-scheme circuit
// breaker so a failing downloader fails fast instead of paying its own
// timeout on every retry attempt.
package resilience

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/eureka-network/eureka-sink/pkg/metrics"
)

// BreakerResolver wraps a downloader with a gobreaker.CircuitBreaker
// named after the scheme it serves.
type BreakerResolver struct {
	scheme  string
	breaker *gobreaker.CircuitBreaker
	next    Downloader
}

// Downloader is the subset of offchain.LinkResolver a breaker wraps.
type Downloader interface {
	Download(ctx context.Context, uri string) ([]byte, error)
}

// NewBreakerResolver wraps next with a circuit breaker that opens after
// 5 consecutive failures, named scheme for metrics and breaker identity.
func NewBreakerResolver(scheme string, next Downloader) *BreakerResolver {
	r := &BreakerResolver{scheme: scheme, next: next}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        scheme,
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, stateValue(to))
		},
	})
	metrics.SetCircuitBreakerState(scheme, stateValue(gobreaker.StateClosed))

	return r
}

func (r *BreakerResolver) Download(ctx context.Context, uri string) ([]byte, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.next.Download(ctx, uri)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
