package ingest

import (
	"fmt"
	"time"
)

// ThrottleError — сервис ингестии попросил сбавить темп (HTTP 429).
// RetryAfter берётся из одноимённого заголовка, если он был.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

func (e *ThrottleError) Unwrap() error { return e.Cause }
