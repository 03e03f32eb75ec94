package domain

import "time"

// RateDecision is the answer of an admission limiter for one request.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // set when Allowed is false
}
