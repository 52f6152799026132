package ratelimit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrQuotaExhausted matches any *QuotaExhaustedError via errors.Is.
var ErrQuotaExhausted = errors.New("daily request quota exhausted")

// QuotaExhaustedError is returned without blocking when a tier's daily
// ceiling has been reached.
type QuotaExhaustedError struct {
	Tier         string
	Limit        int
	RetryAfter   time.Duration
	Alternatives []string
}

func (e *QuotaExhaustedError) Error() string {
	msg := fmt.Sprintf("daily quota of %d requests exhausted for %s mode; resets in %s",
		e.Limit, e.Tier, e.RetryAfter.Round(time.Second))
	if len(e.Alternatives) > 0 {
		msg += "; modes with capacity: " + strings.Join(e.Alternatives, ", ")
	}
	return msg
}

func (e *QuotaExhaustedError) Is(target error) bool {
	return target == ErrQuotaExhausted
}
