// pkg/auth/sender.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/logging"
)

// Sender delivers a code to an address.
type Sender interface {
	Send(ctx context.Context, email, code string, ttl time.Duration) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, email, code string, ttl time.Duration) error

func (f SenderFunc) Send(ctx context.Context, email, code string, ttl time.Duration) error {
	return f(ctx, email, code, ttl)
}

// LogSender records deliveries in the log instead of mailing them. The code
// itself is redacted by the logger.
type LogSender struct {
	logger *logging.Logger
}

// NewLogSender creates a sender for development deployments.
func NewLogSender(logger *logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, email, code string, ttl time.Duration) error {
	s.logger.Info(ctx, "Verification code issued",
		"email", email,
		"otp", code,
		"expires_in", ttl,
	)
	return nil
}

// BreakerSender wraps a Sender with a circuit breaker and bounded retries so
// a failing mail provider is isolated from request handling.
type BreakerSender struct {
	next       Sender
	breaker    *gobreaker.CircuitBreaker
	logger     *logging.Logger
	maxRetries int
	baseDelay  time.Duration
}

// NewBreakerSender configures the breaker from the environment settings.
func NewBreakerSender(next Sender, env *config.EnvironmentConfig, logger *logging.Logger) *BreakerSender {
	settings := gobreaker.Settings{
		Name:        "otp-mail",
		MaxRequests: uint32(env.CircuitBreakerMaxRequests),
		Interval:    env.CircuitBreakerInterval,
		Timeout:     env.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(env.CircuitBreakerMaxConsecutiveFails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &BreakerSender{
		next:       next,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
}

// Send delivers through the breaker, retrying with linear backoff while the
// breaker stays closed. Any final failure is reported as ErrSendFailure.
func (s *BreakerSender) Send(ctx context.Context, email, code string, ttl time.Duration) error {
	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		_, err = s.breaker.Execute(func() (interface{}, error) {
			return nil, s.next.Send(ctx, email, code, ttl)
		})
		if err == nil {
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Warn(ctx, "mail circuit open, skipping retries",
				"attempt", attempt+1,
				"state", s.breaker.State().String(),
			)
			break
		}
		if attempt == s.maxRetries-1 {
			break
		}

		delay := time.Duration(attempt+1) * s.baseDelay
		s.logger.Warn(ctx, "mail delivery failed, retrying",
			"attempt", attempt+1,
			"max_retries", s.maxRetries,
			"delay", delay,
			"error", err,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrSendFailure, ctx.Err())
		}
	}
	return fmt.Errorf("%w: %v", ErrSendFailure, err)
}

// State returns the breaker state.
func (s *BreakerSender) State() gobreaker.State {
	return s.breaker.State()
}

// Counts returns the breaker's request counts.
func (s *BreakerSender) Counts() gobreaker.Counts {
	return s.breaker.Counts()
}
