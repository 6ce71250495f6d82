package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/cloudent/reputation-node/circuits/reputation"
	"github.com/cloudent/reputation-node/relayer"
	"github.com/cloudent/reputation-node/storage"
	"github.com/cloudent/reputation-node/types"
	"github.com/cloudent/reputation-node/util"
)

const testAPIKey = "test-api-key"

type stubProver struct {
	failProve bool
}

func (s *stubProver) Prove(input *reputation.CircuitInput) (*reputation.ProofArtifact, error) {
	if s.failProve {
		return nil, reputation.ErrProving
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return &reputation.ProofArtifact{
		Proof:         json.RawMessage(`{"pi_a":["1","2","1"]}`),
		PublicSignals: input.PublicSignals(),
	}, nil
}

func (s *stubProver) Verify(*reputation.ProofArtifact) error { return nil }

func (s *stubProver) VerificationKey() []byte { return []byte(`{"curve":"bn128"}`) }

// fakeRelayer scripts a relayer HTTP server: the optimistic verification
// result and the sequence of job status replies are configurable.
type fakeRelayer struct {
	optimisticVerify string
	statusScript     []string
	registerCalls    int64
	statusCalls      int64
}

func (f *fakeRelayer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/register-vk/"):
			atomic.AddInt64(&f.registerCalls, 1)
			_ = json.NewEncoder(w).Encode(map[string]any{"vkHash": "0xdeadbeef"})
		case strings.HasPrefix(r.URL.Path, "/submit-proof/"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"optimisticVerify": f.optimisticVerify,
				"jobId":            "job-1",
			})
		case strings.HasPrefix(r.URL.Path, "/job-status/"):
			call := atomic.AddInt64(&f.statusCalls, 1)
			status := "Pending"
			if int(call) <= len(f.statusScript) {
				status = f.statusScript[call-1]
			}
			res := map[string]any{"status": status}
			if status == "Aggregated" {
				res["txHash"] = "0xtx"
				res["blockHash"] = "0xblock"
				res["aggregationId"] = 7
				res["aggregationDetails"] = map[string]any{"receipt": "0xreceipt"}
			}
			_ = json.NewEncoder(w).Encode(res)
		default:
			http.NotFound(w, r)
		}
	}
}

func testPipeline(t *testing.T, fake *fakeRelayer) (*Pipeline, *storage.Storage) {
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	client, err := relayer.NewClient(server.URL, testAPIKey)
	qt.Assert(t, err, qt.IsNil)
	stg := storage.New(metadb.NewTest(t))
	registrar := relayer.NewRegistrar(client, stg.VKCache())
	poller := relayer.NewPoller(client, relayer.RetryPolicy{
		MaxAttempts: 5,
		Interval:    time.Millisecond,
	})
	return New(stg, &stubProver{}, registrar, client, poller, 0), stg
}

func seedAgent(t *testing.T, stg *storage.Storage, id string, ratings ...int) {
	qt.Assert(t, stg.SetAgent(&types.Agent{
		ID:             id,
		Name:           "agent " + id,
		Uptime:         []float64{24, 24, 24},
		AvgExecTime:    []float64{120},
		RequestsPerDay: []int64{450},
		CreatedAt:      time.Now(),
	}), qt.IsNil)
	for i, rating := range ratings {
		qt.Assert(t, stg.AddReview(&types.Review{
			AgentID:     id,
			Author:      common.HexToAddress("0x2222222222222222222222222222222222222222"),
			Rating:      rating,
			ContentHash: types.HexBytes(util.RandomBytes(32)),
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Millisecond),
		}), qt.IsNil)
	}
}

func TestPipelineFullCycle(t *testing.T) {
	c := qt.New(t)
	fake := &fakeRelayer{
		optimisticVerify: "success",
		statusScript:     []string{"Pending", "Pending", "Aggregated"},
	}
	p, stg := testPipeline(t, fake)
	seedAgent(t, stg, "agent-1", 5, 4, 5)
	for i := 0; i < 10; i++ {
		qt.Assert(t, stg.AppendMonitoringSample("agent-1", types.MonitoringSample{
			UptimeHours: 24, AvgExecTimeMs: 120, RequestCount: 150,
		}), qt.IsNil)
	}

	receipt, err := p.GenerateAndSubmit(context.Background(), "agent-1")
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.JobID, qt.Equals, "job-1")
	c.Assert(receipt.VKHash, qt.Equals, "0xdeadbeef")

	// the submission left a session snapshot behind
	session, err := stg.ProofSession("job-1")
	c.Assert(err, qt.IsNil)
	c.Assert(session.AgentID, qt.Equals, "agent-1")
	c.Assert(session.ReviewHashes, qt.HasLen, 3)
	c.Assert(session.Uptime, qt.HasLen, types.MonitoringWindow)

	record, err := p.WaitAndRecord(context.Background(), "job-1")
	c.Assert(err, qt.IsNil)
	c.Assert(record.Verified, qt.IsTrue)
	c.Assert(record.VerifiedAt, qt.IsNotNil)
	c.Assert(record.RelayerTxHash, qt.Equals, "0xtx")
	c.Assert(record.AggregationID, qt.Equals, int64(7))
	c.Assert(record.ReceiptHash, qt.Equals, "0xreceipt")
	c.Assert(atomic.LoadInt64(&fake.statusCalls), qt.Equals, int64(3))

	// the record is persisted and the session is gone
	records, err := stg.ProofRecordsByAgent("agent-1")
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 1)
	_, err = stg.ProofSession("job-1")
	c.Assert(err, qt.Equals, storage.ErrNotFound)
}

func TestPipelineOptimisticRejected(t *testing.T) {
	c := qt.New(t)
	fake := &fakeRelayer{optimisticVerify: "fail"}
	p, stg := testPipeline(t, fake)
	seedAgent(t, stg, "agent-1", 5)

	_, err := p.GenerateAndSubmit(context.Background(), "agent-1")
	c.Assert(errors.Is(err, ErrOptimisticRejected), qt.IsTrue)
	// a rejected proof is never polled
	c.Assert(atomic.LoadInt64(&fake.statusCalls), qt.Equals, int64(0))
	_, err = stg.ProofSession("job-1")
	c.Assert(err, qt.Equals, storage.ErrNotFound)
}

func TestPipelineFailedJobStillRecorded(t *testing.T) {
	c := qt.New(t)
	fake := &fakeRelayer{
		optimisticVerify: "success",
		statusScript:     []string{"Failed"},
	}
	p, stg := testPipeline(t, fake)
	seedAgent(t, stg, "agent-1", 3)

	receipt, err := p.GenerateAndSubmit(context.Background(), "agent-1")
	c.Assert(err, qt.IsNil)

	record, err := p.WaitAndRecord(context.Background(), receipt.JobID)
	c.Assert(err, qt.IsNil)
	c.Assert(record.Verified, qt.IsFalse)
	c.Assert(record.VerifiedAt, qt.IsNil)
	c.Assert(record.RelayerTxHash, qt.Equals, "")

	records, err := stg.ProofRecordsByAgent("agent-1")
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 1)
}

func TestPipelineTimedOutStillRecorded(t *testing.T) {
	c := qt.New(t)
	fake := &fakeRelayer{optimisticVerify: "success"}
	p, stg := testPipeline(t, fake)
	seedAgent(t, stg, "agent-1", 4)

	receipt, err := p.GenerateAndSubmit(context.Background(), "agent-1")
	c.Assert(err, qt.IsNil)

	record, err := p.WaitAndRecord(context.Background(), receipt.JobID)
	c.Assert(err, qt.IsNil)
	c.Assert(record.Verified, qt.IsFalse)
	c.Assert(record.JobID, qt.Equals, receipt.JobID)
	c.Assert(atomic.LoadInt64(&fake.statusCalls), qt.Equals, int64(5))

	records, err := stg.ProofRecordsByAgent("agent-1")
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 1)
}

func TestPipelineAgentNotFound(t *testing.T) {
	c := qt.New(t)
	p, _ := testPipeline(t, &fakeRelayer{optimisticVerify: "success"})
	_, err := p.GenerateAndSubmit(context.Background(), "missing")
	c.Assert(err, qt.Equals, storage.ErrNotFound)
}

func TestPipelineVKRegisteredOnce(t *testing.T) {
	c := qt.New(t)
	fake := &fakeRelayer{
		optimisticVerify: "success",
		statusScript:     []string{"Aggregated", "Aggregated"},
	}
	p, stg := testPipeline(t, fake)
	seedAgent(t, stg, "agent-1", 5)

	_, err := p.GenerateAndSubmit(context.Background(), "agent-1")
	c.Assert(err, qt.IsNil)
	_, err = p.GenerateAndSubmit(context.Background(), "agent-1")
	c.Assert(err, qt.IsNil)
	c.Assert(atomic.LoadInt64(&fake.registerCalls), qt.Equals, int64(1))
}

func TestPipelineRunBatchContinuesOnError(t *testing.T) {
	c := qt.New(t)
	fake := &fakeRelayer{
		optimisticVerify: "success",
		statusScript:     []string{"Aggregated", "Aggregated"},
	}
	p, stg := testPipeline(t, fake)
	seedAgent(t, stg, "agent-1")
	seedAgent(t, stg, "agent-2", 5, 5)

	// break agent-1's monitoring data so its encoding fails, the batch must
	// still process agent-2
	agent1, err := stg.Agent("agent-1")
	c.Assert(err, qt.IsNil)
	c.Assert(stg.AddReview(&types.Review{
		AgentID:     agent1.ID,
		Rating:      5,
		ContentHash: nil, // empty hash makes the encoder fail
		CreatedAt:   time.Now(),
	}), qt.IsNil)

	c.Assert(p.RunBatch(context.Background()), qt.IsNil)

	records, err := stg.ProofRecordsByAgent("agent-2")
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 1)
	records, err = stg.ProofRecordsByAgent("agent-1")
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.HasLen, 0)
}
