package relayer

import (
	"context"
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/cloudent/reputation-node/types"
)

// scriptedQuerier replays a fixed sequence of status responses; an entry
// starting with "err:" yields a query error instead.
type scriptedQuerier struct {
	script []string
	calls  int
}

func (s *scriptedQuerier) JobStatus(_ context.Context, jobID string) (*JobStatusResponse, error) {
	if s.calls >= len(s.script) {
		return nil, fmt.Errorf("unexpected call %d for job %s", s.calls, jobID)
	}
	status := s.script[s.calls]
	s.calls++
	if status == "err:network" {
		return nil, fmt.Errorf("connection reset")
	}
	res := &JobStatusResponse{Status: status}
	if status == JobStatusAggregated || status == JobStatusFinalized {
		res.TxHash = "0xtx"
		res.BlockHash = "0xblock"
		res.AggregationID = 7
		res.AggregationDetails = &types.AggregationDetails{Receipt: "0xreceipt"}
	}
	return res, nil
}

func testPoller(querier *scriptedQuerier, maxAttempts int) (*Poller, *int) {
	sleeps := 0
	p := NewPoller(querier, RetryPolicy{MaxAttempts: maxAttempts, Interval: time.Second})
	p.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}
	return p, &sleeps
}

func TestPollerAggregatedAfterPending(t *testing.T) {
	c := qt.New(t)
	querier := &scriptedQuerier{script: []string{"Pending", "Pending", "Aggregated"}}
	p, sleeps := testPoller(querier, 10)

	result, err := p.WaitAggregation(context.Background(), "job-1")
	c.Assert(err, qt.IsNil)
	c.Assert(result.Outcome, qt.Equals, OutcomeAggregated)
	c.Assert(querier.calls, qt.Equals, 3)
	c.Assert(*sleeps, qt.Equals, 2)
	c.Assert(result.Attempts, qt.Equals, 3)
	c.Assert(result.TxHash, qt.Equals, "0xtx")
	c.Assert(result.AggregationID, qt.Equals, int64(7))
	c.Assert(result.AggregationDetails.Receipt, qt.Equals, "0xreceipt")
}

func TestPollerFinalizedIsTerminal(t *testing.T) {
	c := qt.New(t)
	querier := &scriptedQuerier{script: []string{"Finalized"}}
	p, _ := testPoller(querier, 10)

	result, err := p.WaitAggregation(context.Background(), "job-1")
	c.Assert(err, qt.IsNil)
	c.Assert(result.Outcome, qt.Equals, OutcomeAggregated)
	c.Assert(querier.calls, qt.Equals, 1)
}

func TestPollerFailedStopsImmediately(t *testing.T) {
	c := qt.New(t)
	querier := &scriptedQuerier{script: []string{"Pending", "Failed", "Aggregated"}}
	p, _ := testPoller(querier, 10)

	result, err := p.WaitAggregation(context.Background(), "job-1")
	c.Assert(err, qt.IsNil)
	c.Assert(result.Outcome, qt.Equals, OutcomeFailed)
	// no polling after the terminal failure
	c.Assert(querier.calls, qt.Equals, 2)
}

func TestPollerTimesOut(t *testing.T) {
	c := qt.New(t)
	script := make([]string, 5)
	for i := range script {
		script[i] = "Pending"
	}
	querier := &scriptedQuerier{script: script}
	p, sleeps := testPoller(querier, 5)

	result, err := p.WaitAggregation(context.Background(), "job-1")
	c.Assert(err, qt.IsNil)
	c.Assert(result.Outcome, qt.Equals, OutcomeTimedOut)
	c.Assert(result.JobID, qt.Equals, "job-1")
	c.Assert(querier.calls, qt.Equals, 5)
	// no sleep after the final attempt
	c.Assert(*sleeps, qt.Equals, 4)
}

func TestPollerTransientErrorsCountAgainstBudget(t *testing.T) {
	c := qt.New(t)
	querier := &scriptedQuerier{script: []string{"err:network", "Pending", "err:network", "Aggregated"}}
	p, _ := testPoller(querier, 10)

	result, err := p.WaitAggregation(context.Background(), "job-1")
	c.Assert(err, qt.IsNil)
	c.Assert(result.Outcome, qt.Equals, OutcomeAggregated)
	c.Assert(result.Attempts, qt.Equals, 4)
}

func TestPollerContextCancellation(t *testing.T) {
	c := qt.New(t)
	querier := &scriptedQuerier{script: []string{"Pending", "Pending"}}
	p := NewPoller(querier, RetryPolicy{MaxAttempts: 10, Interval: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := p.WaitAggregation(ctx, "job-1")
	c.Assert(err, qt.IsNotNil)
}
