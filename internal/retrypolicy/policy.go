package retrypolicy

// DefaultLimit is the number of recorded failures an item may accumulate
// before automatic retry is blocked.
const DefaultLimit = 3

// Decision is the outcome of evaluating an item's failure history.
type Decision struct {
	Retryable bool
	Attempts  int
	Limit     int
	Remaining int
}

// Policy maps failure history to a retry decision. Export failures and
// pipeline failures draw from the same per-item budget.
type Policy struct {
	limit int
}

// New constructs a policy with the given attempt limit. Non-positive limits
// fall back to DefaultLimit.
func New(limit int) Policy {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Policy{limit: limit}
}

// Default returns the reference policy.
func Default() Policy {
	return New(DefaultLimit)
}

// Limit returns the configured attempt limit.
func (p Policy) Limit() int {
	return p.limit
}

// Evaluate derives a decision from the count of failed jobs recorded for an
// item, including the failure currently being recorded.
func (p Policy) Evaluate(failedJobs int) Decision {
	if failedJobs < 0 {
		failedJobs = 0
	}
	remaining := p.limit - failedJobs
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Retryable: failedJobs < p.limit,
		Attempts:  failedJobs,
		Limit:     p.limit,
		Remaining: remaining,
	}
}
