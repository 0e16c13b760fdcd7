// Package auth implements e-mail sign-in with one-time codes. A code is six
// digits, expires after a fixed TTL and can be redeemed once; redeeming it
// yields an opaque session token.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/go-orbitsim/pkg/logging"
	"github.com/opd-ai/go-orbitsim/pkg/validation"
)

var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrInvalidCode  = errors.New("invalid code format")
	ErrSendFailure  = errors.New("failed to send verification code")
	ErrExpired      = errors.New("code has expired")
	ErrMismatch     = errors.New("code does not match")
	ErrAlreadyUsed  = errors.New("code already used")
	ErrNotFound     = errors.New("no code found for this email")
	ErrRateLimited  = errors.New("too many code requests")
)

// DefaultTokenTTL is how long a session token stays valid.
const DefaultTokenTTL = 12 * time.Hour

// Service issues and verifies codes.
type Service struct {
	store    Store
	sender   Sender
	ttl      time.Duration
	tokenTTL time.Duration
	limiter  *validation.RateLimiter
	logger   *logging.Logger

	now      func() time.Time
	generate func() (string, error)

	mu     sync.RWMutex
	tokens map[string]grant

	sweepTick *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

type grant struct {
	email     string
	expiresAt time.Time
}

// NewService creates a service allowing requestsPerMin code requests per
// address. Expired codes and tokens are swept once per code TTL.
func NewService(store Store, sender Sender, ttl time.Duration, requestsPerMin int, logger *logging.Logger) *Service {
	every := ttl
	if every <= 0 {
		every = time.Minute
	}
	s := &Service{
		store:     store,
		sender:    sender,
		ttl:       ttl,
		tokenTTL:  DefaultTokenTTL,
		limiter:   validation.NewRateLimiter(requestsPerMin, time.Minute),
		logger:    logger.With("component", "auth"),
		now:       time.Now,
		generate:  generateCode,
		tokens:    make(map[string]grant),
		sweepTick: time.NewTicker(every),
		done:      make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// SetTokenTTL changes the lifetime of tokens issued from now on.
func (s *Service) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.tokenTTL = d
	}
}

// Close stops the sweeper and the rate limiter. It is safe to call more
// than once.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.sweepTick.Stop()
	})
	s.limiter.Close()
}

func (s *Service) sweepLoop() {
	for {
		select {
		case now := <-s.sweepTick.C:
			s.sweep(context.Background(), now)
		case <-s.done:
			return
		}
	}
}

// sweep drops codes and tokens that expired before now.
func (s *Service) sweep(ctx context.Context, now time.Time) (codes, tokens int) {
	codes, err := s.store.Purge(ctx, now)
	if err != nil {
		s.logger.Error(ctx, "Code purge failed", err)
	}

	s.mu.Lock()
	for t, g := range s.tokens {
		if now.After(g.expiresAt) {
			delete(s.tokens, t)
			tokens++
		}
	}
	s.mu.Unlock()

	if codes > 0 || tokens > 0 {
		s.logger.Debug(ctx, "Expired credentials swept", "purged", codes, "expired", tokens)
	}
	return codes, tokens
}

// generateCode returns a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// RequestCode issues a new code for email, replacing any pending one, and
// hands it to the sender.
func (s *Service) RequestCode(ctx context.Context, email string) error {
	addr, err := validation.ValidateEmail(email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	if !s.limiter.Allow(addr) {
		s.logger.Warn(ctx, "Code request throttled", "email", addr)
		return ErrRateLimited
	}

	code, err := s.generate()
	if err != nil {
		return logging.WrapError(err, "generate code")
	}
	rec := Record{Email: addr, Code: code, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.store.Put(ctx, rec); err != nil {
		return logging.WrapError(err, "store code")
	}

	if err := s.sender.Send(ctx, addr, code, s.ttl); err != nil {
		_ = s.store.Delete(ctx, addr)
		s.logger.Error(ctx, "Code delivery failed", err, "email", addr)
		if errors.Is(err, ErrSendFailure) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrSendFailure, err)
	}

	s.logger.Info(ctx, "Code sent", "email", addr)
	return nil
}

// VerifyCode redeems a code and returns a session token.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (string, error) {
	addr, err := validation.ValidateEmail(email)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	code, err = validation.ValidateCode(code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}

	if _, err := s.store.Redeem(ctx, addr, code, s.now()); err != nil {
		if errors.Is(err, ErrMismatch) {
			s.logger.Warn(ctx, "Code mismatch", "email", addr)
		}
		return "", err
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = grant{email: addr, expiresAt: s.now().Add(s.tokenTTL)}
	s.mu.Unlock()

	s.logger.Info(ctx, "Code verified", "email", addr)
	return token, nil
}

// Authenticate returns the address a live token was issued to.
func (s *Service) Authenticate(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.tokens[token]
	if !ok || s.now().After(g.expiresAt) {
		return "", false
	}
	return g.email, true
}

// Revoke invalidates a token and reports whether it was live.
func (s *Service) Revoke(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.tokens[token]
	delete(s.tokens, token)
	return ok && !s.now().After(g.expiresAt)
}
