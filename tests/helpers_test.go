package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/cloudent/reputation-node/api/client"
	"github.com/cloudent/reputation-node/circuits/reputation"
	"github.com/cloudent/reputation-node/pipeline"
	"github.com/cloudent/reputation-node/relayer"
	"github.com/cloudent/reputation-node/service"
	"github.com/cloudent/reputation-node/storage"
	"github.com/cloudent/reputation-node/util"
)

const testAPIKey = "integration-test-key"

// testProver mimics the proof generator without circuit artifacts: the
// returned proof is fake but structurally valid JSON, and the public
// signals are derived from the input like the real circuit output.
type testProver struct{}

func (testProver) Prove(input *reputation.CircuitInput) (*reputation.ProofArtifact, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return &reputation.ProofArtifact{
		Proof:         json.RawMessage(`{"pi_a":["1","2","1"],"pi_b":[["3","4"],["5","6"],["1","0"]],"pi_c":["7","8","1"],"protocol":"groth16","curve":"bn128"}`),
		PublicSignals: input.PublicSignals(),
	}, nil
}

func (testProver) Verify(*reputation.ProofArtifact) error { return nil }

func (testProver) VerificationKey() []byte { return []byte(`{"curve":"bn128"}`) }

// testRelayer is a scripted relayer server: jobs aggregate after a fixed
// number of status queries.
type testRelayer struct {
	pollsToAggregate int64
	statusCalls      int64
	registerCalls    int64
}

func (f *testRelayer) serve(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/register-vk/"):
			atomic.AddInt64(&f.registerCalls, 1)
			_ = json.NewEncoder(w).Encode(map[string]any{"vkHash": "0xdeadbeef"})
		case strings.HasPrefix(r.URL.Path, "/submit-proof/"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"optimisticVerify": "success",
				"jobId":            "job-e2e-1",
			})
		case strings.HasPrefix(r.URL.Path, "/job-status/"):
			calls := atomic.AddInt64(&f.statusCalls, 1)
			if calls >= f.pollsToAggregate {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"status":        "Aggregated",
					"txHash":        "0xtx",
					"blockHash":     "0xblock",
					"aggregationId": 42,
					"aggregationDetails": map[string]any{
						"receipt":        "0xreceipt",
						"leafIndex":      1,
						"numberOfLeaves": 4,
					},
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "Pending"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// setupNode starts storage, pipeline and the API server, returning an API
// client pointed at it.
func setupNode(t *testing.T, ctx context.Context) (*client.HTTPclient, *storage.Storage) {
	fake := &testRelayer{pollsToAggregate: 3}
	relayerSrv := fake.serve(t)

	relayerClient, err := relayer.NewClient(relayerSrv.URL, testAPIKey)
	qt.Assert(t, err, qt.IsNil)

	stg := storage.New(metadb.NewTest(t))
	registrar := relayer.NewRegistrar(relayerClient, stg.VKCache())
	poller := relayer.NewPoller(relayerClient, relayer.RetryPolicy{
		MaxAttempts: 10,
		Interval:    time.Millisecond,
	})
	pl := pipeline.New(stg, testProver{}, registrar, relayerClient, poller, 0)

	tmpPort := util.RandomInt(40000, 60000)
	apiSrv := service.NewAPI(stg, pl, "127.0.0.1", tmpPort)
	qt.Assert(t, apiSrv.Start(ctx), qt.IsNil)

	// Wait for the HTTP server to start
	time.Sleep(500 * time.Millisecond)

	cli, err := client.New(fmt.Sprintf("http://127.0.0.1:%d", tmpPort))
	qt.Assert(t, err, qt.IsNil)
	return cli, stg
}
