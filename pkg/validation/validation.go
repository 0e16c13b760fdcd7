// Package validation checks untrusted input reaching the simulator: request
// bodies, control actions, e-mail addresses and one-time codes.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/opd-ai/go-orbitsim/pkg/engine"
)

// Input limits
const (
	MaxBodySize       = 16 * 1024
	MaxEmailLen       = 254
	CodeLength        = 6
	MaxNameLen        = 32
	MaxActionsPerMin  = 1200
	MaxAlignmentInput = 360
)

// ErrRateLimited is returned when a key has exhausted its request budget.
var ErrRateLimited = errors.New("rate limit exceeded")

var (
	// Same shape the sign-in form accepts: something@something.tld, no spaces.
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	codePattern  = regexp.MustCompile(`^[0-9]{6}$`)
	namePattern  = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// RequestValidator checks raw request bodies and throttles them per key.
type RequestValidator struct {
	rateLimiter *RateLimiter
}

// NewRequestValidator creates a validator allowing perMinute requests per key.
func NewRequestValidator(perMinute int) *RequestValidator {
	return &RequestValidator{rateLimiter: NewRateLimiter(perMinute, time.Minute)}
}

// Close releases the rate limiter.
func (v *RequestValidator) Close() {
	if v.rateLimiter != nil {
		v.rateLimiter.Close()
	}
}

// ValidateBody checks size, JSON shape and the rate budget of key.
func (v *RequestValidator) ValidateBody(data []byte, key string) error {
	if len(data) > MaxBodySize {
		return fmt.Errorf("request body too large: %d bytes (max %d)", len(data), MaxBodySize)
	}
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON format")
	}
	if !v.rateLimiter.Allow(key) {
		return fmt.Errorf("%w: max %d requests per minute", ErrRateLimited, v.rateLimiter.maxRequests)
	}
	return nil
}

// ValidateEmail trims and lower-cases an address and checks its shape.
func ValidateEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("email is required")
	}
	if len(trimmed) > MaxEmailLen {
		return "", fmt.Errorf("email too long: %d characters (max %d)", len(trimmed), MaxEmailLen)
	}
	if !utf8.ValidString(trimmed) {
		return "", fmt.Errorf("email contains invalid UTF-8 characters")
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("email contains control characters")
		}
	}
	if !emailPattern.MatchString(trimmed) {
		return "", fmt.Errorf("invalid email format")
	}
	return trimmed, nil
}

// ValidateCode checks that a one-time code is exactly six digits.
func ValidateCode(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", fmt.Errorf("code is required")
	}
	if !codePattern.MatchString(trimmed) {
		return "", fmt.Errorf("code must be %d digits", CodeLength)
	}
	return trimmed, nil
}

// ValidateName checks a subsystem or strength identifier.
func ValidateName(field, name string) error {
	if name == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("%s too long: %d characters (max %d)", field, len(name), MaxNameLen)
	}
	if !namePattern.MatchString(strings.ToLower(name)) {
		return fmt.Errorf("%s contains invalid characters", field)
	}
	return nil
}

// ValidateAction checks the fields an action kind reads. Whether the action
// makes sense for the mission is decided by the simulation.
func ValidateAction(a engine.Action) error {
	known := false
	for _, k := range engine.ActionKinds {
		if a.Kind == k {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown action %q", a.Kind)
	}

	switch a.Kind {
	case engine.ActionToggleSubsystem:
		return ValidateName("subsystem", a.Subsystem)
	case engine.ActionSelectStrength:
		return ValidateName("strength", a.Strength)
	case engine.ActionSetAlignment:
		if math.IsNaN(a.Value) || math.IsInf(a.Value, 0) {
			return fmt.Errorf("alignment must be a finite number")
		}
		if math.Abs(a.Value) > MaxAlignmentInput {
			return fmt.Errorf("alignment out of range: %v (max ±%d)", a.Value, MaxAlignmentInput)
		}
	}
	return nil
}
