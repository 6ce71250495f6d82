package relayer

import (
	"context"
	"time"

	"github.com/cloudent/reputation-node/log"
	"github.com/cloudent/reputation-node/types"
)

// Outcome is the terminal result of waiting for a job aggregation.
type Outcome string

const (
	// OutcomeAggregated means the proof was aggregated on the settlement
	// chain.
	OutcomeAggregated Outcome = "aggregated"
	// OutcomeFailed means the relayer reported the job as failed.
	OutcomeFailed Outcome = "failed"
	// OutcomeTimedOut means the attempt budget was exhausted without a
	// terminal status. The job may still aggregate later, the caller keeps
	// the jobID for out-of-band follow-up.
	OutcomeTimedOut Outcome = "timedout"
)

// RetryPolicy bounds the polling loop: at most MaxAttempts status queries,
// separated by Interval.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultRetryPolicy polls every 30 seconds for up to 10 minutes.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 20, Interval: 30 * time.Second}

// AggregationResult is the outcome of one polling run for a job.
type AggregationResult struct {
	JobID              string
	Outcome            Outcome
	TxHash             string
	BlockHash          string
	AggregationID      int64
	AggregationDetails *types.AggregationDetails
	Statement          string
	Attempts           int
}

// JobStatusQuerier is the single relayer call the poller depends on.
type JobStatusQuerier interface {
	JobStatus(ctx context.Context, jobID string) (*JobStatusResponse, error)
}

// Poller drives a job to a terminal state by querying its status under a
// RetryPolicy. It is blocking and sequential per job, independent jobs can
// be polled concurrently with separate calls.
type Poller struct {
	client JobStatusQuerier
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a Poller with the given policy.
func NewPoller(client JobStatusQuerier, policy RetryPolicy) *Poller {
	return &Poller{
		client: client,
		policy: policy,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitAggregation polls the job until it is aggregated, failed or the
// attempt budget is exhausted. Failed and TimedOut are returned as results,
// not errors, so the caller can persist them. Transient query errors count
// against the attempt budget and do not abort the loop. The only error
// returned is a context cancellation.
func (p *Poller) WaitAggregation(ctx context.Context, jobID string) (*AggregationResult, error) {
	result := &AggregationResult{JobID: jobID, Outcome: OutcomeTimedOut}
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		result.Attempts = attempt
		res, err := p.client.JobStatus(ctx, jobID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warnw("job status query failed", "jobId", jobID,
				"attempt", attempt, "error", err.Error())
		case res.Status == JobStatusAggregated || res.Status == JobStatusFinalized:
			result.Outcome = OutcomeAggregated
			result.TxHash = res.TxHash
			result.BlockHash = res.BlockHash
			result.AggregationID = res.AggregationID
			result.AggregationDetails = res.AggregationDetails
			result.Statement = res.Statement
			log.Infow("proof aggregated", "jobId", jobID, "attempts", attempt,
				"txHash", res.TxHash, "aggregationId", res.AggregationID)
			return result, nil
		case res.Status == JobStatusFailed:
			result.Outcome = OutcomeFailed
			log.Warnw("proof aggregation failed", "jobId", jobID, "attempts", attempt)
			return result, nil
		default:
			log.Debugw("job still pending", "jobId", jobID,
				"status", res.Status, "attempt", attempt)
		}
		if attempt == p.policy.MaxAttempts {
			break
		}
		if err := p.sleep(ctx, p.policy.Interval); err != nil {
			return nil, err
		}
	}
	log.Warnw("aggregation wait exhausted", "jobId", jobID,
		"attempts", p.policy.MaxAttempts)
	return result, nil
}
