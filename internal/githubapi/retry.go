package githubapi

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/depflow/internal/gitprovider"
)

const rateLimitedRetryMessageConstant = "GitHub rate limit hit; retrying once"

// RetryAction is the outcome of a rate-limit retry decision.
type RetryAction int

// Retry actions.
const (
	RetryActionFail RetryAction = iota
	RetryActionRetry
)

// RetryDecision tells the caller whether to retry and how long to wait first.
type RetryDecision struct {
	Action RetryAction
	Delay  time.Duration
}

// decideRateLimitRetry retries only the first rate-limited failure, waiting
// for the server hint or defaultDelay when the response carried none.
func decideRateLimitRetry(err error, attempt int, defaultDelay time.Duration) RetryDecision {
	if err == nil || attempt > 0 || !errors.Is(err, gitprovider.ErrRateLimited) {
		return RetryDecision{Action: RetryActionFail}
	}
	delay := defaultDelay
	var statusError *StatusError
	if errors.As(err, &statusError) && statusError.HasRetryAfter {
		delay = statusError.RetryAfter
	}
	return RetryDecision{Action: RetryActionRetry, Delay: delay}
}

func (client *Client) withRateLimitRetry(executionContext context.Context, operation OperationName, call func() error) error {
	for attempt := 0; ; attempt++ {
		callError := call()
		decision := decideRateLimitRetry(callError, attempt, client.defaultRetryAfter)
		if decision.Action != RetryActionRetry {
			return callError
		}

		client.metrics.IncRateLimitRetry(string(operation))
		client.logger.Info(rateLimitedRetryMessageConstant,
			zap.String(logFieldOperationConstant, string(operation)),
			zap.Duration(logFieldDelayConstant, decision.Delay),
		)
		if sleepError := client.sleep(executionContext, decision.Delay); sleepError != nil {
			return sleepError
		}
	}
}
