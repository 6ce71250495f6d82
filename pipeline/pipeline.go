// Package pipeline orchestrates the reputation proof cycle for an agent:
// encoding the circuit input, generating and locally verifying the proof,
// registering the verification key, submitting to the relayer and waiting
// for aggregation before writing the proof record.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudent/reputation-node/circuits/reputation"
	"github.com/cloudent/reputation-node/log"
	"github.com/cloudent/reputation-node/relayer"
	"github.com/cloudent/reputation-node/storage"
	"github.com/cloudent/reputation-node/types"
)

// ErrOptimisticRejected means the relayer rejected the proof synchronously
// at submission. The proof itself is invalid, no polling happens.
var ErrOptimisticRejected = errors.New("optimistic verification rejected")

// Prover generates and locally verifies proofs for circuit inputs.
type Prover interface {
	Prove(input *reputation.CircuitInput) (*reputation.ProofArtifact, error)
	Verify(artifact *reputation.ProofArtifact) error
	VerificationKey() []byte
}

// Registrar idempotently resolves the verification key hash of a circuit.
type Registrar interface {
	EnsureRegistered(ctx context.Context, circuitID string, vk json.RawMessage) (string, error)
}

// Submitter submits proofs to the relayer.
type Submitter interface {
	SubmitProof(ctx context.Context, req *relayer.SubmitProofRequest) (*relayer.SubmitProofResponse, error)
}

// AggregationWaiter drives a submitted job to a terminal outcome.
type AggregationWaiter interface {
	WaitAggregation(ctx context.Context, jobID string) (*relayer.AggregationResult, error)
}

// SubmissionReceipt identifies an accepted proof submission.
type SubmissionReceipt struct {
	AgentID string `json:"agentId"`
	ProofID string `json:"proofId"`
	JobID   string `json:"jobId"`
	VKHash  string `json:"vkHash"`
}

// Pipeline wires the proof cycle stages over shared storage.
type Pipeline struct {
	stg       *storage.Storage
	prover    Prover
	registrar Registrar
	submitter Submitter
	waiter    AggregationWaiter
	chainID   int64
}

// New creates a Pipeline. The chain identifier selects the settlement chain
// of the submissions.
func New(stg *storage.Storage, prover Prover, registrar Registrar,
	submitter Submitter, waiter AggregationWaiter, chainID int64,
) *Pipeline {
	if chainID == 0 {
		chainID = relayer.DefaultChainID
	}
	return &Pipeline{
		stg:       stg,
		prover:    prover,
		registrar: registrar,
		submitter: submitter,
		waiter:    waiter,
		chainID:   chainID,
	}
}

// GenerateAndSubmit runs the synchronous half of the proof cycle for one
// agent: encode, prove, register the verification key if needed and submit.
// On acceptance it persists a ProofSession snapshotting the attested data,
// keyed by the returned jobID, for WaitAndRecord to consume.
func (p *Pipeline) GenerateAndSubmit(ctx context.Context, agentID string) (*SubmissionReceipt, error) {
	agent, err := p.stg.Agent(agentID)
	if err != nil {
		return nil, err
	}
	reviews, err := p.stg.ReviewsByAgent(agentID)
	if err != nil {
		return nil, fmt.Errorf("error reading reviews: %w", err)
	}
	employments, err := p.stg.EmploymentsByAgent(agentID)
	if err != nil {
		return nil, fmt.Errorf("error reading employments: %w", err)
	}
	now := time.Now()
	input, err := reputation.BuildCircuitInput(agent, reviews, len(employments), now)
	if err != nil {
		return nil, fmt.Errorf("error encoding circuit input: %w", err)
	}
	artifact, err := p.prover.Prove(input)
	if err != nil {
		return nil, err
	}
	if err := p.prover.Verify(artifact); err != nil {
		return nil, fmt.Errorf("proof failed local verification: %w", err)
	}
	vkHash, err := p.registrar.EnsureRegistered(ctx, reputation.CircuitID, p.prover.VerificationKey())
	if err != nil {
		return nil, err
	}
	res, err := p.submitter.SubmitProof(ctx, &relayer.SubmitProofRequest{
		ProofType:    relayer.ProofType,
		VKRegistered: true,
		ChainID:      p.chainID,
		ProofOptions: relayer.DefaultProofOptions(),
		ProofData: relayer.ProofData{
			Proof:         artifact.Proof,
			PublicSignals: artifact.PublicSignals,
			VK:            vkHash,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("proof submission failed: %w", err)
	}
	if res.OptimisticVerify != relayer.OptimisticVerifySuccess {
		return nil, fmt.Errorf("%w: %s", ErrOptimisticRejected, res.OptimisticVerify)
	}
	proofID := newProofID(agentID, now)
	session := &types.ProofSession{
		AgentID:        agentID,
		ProofID:        proofID,
		JobID:          res.JobID,
		ReviewHashes:   snapshotReviewHashes(reviews),
		Uptime:         lastSamples(agent.Uptime, types.MonitoringWindow),
		AvgExecTime:    lastSamples(agent.AvgExecTime, types.MonitoringWindow),
		RequestsPerDay: lastSamples(agent.RequestsPerDay, types.MonitoringWindow),
		CreatedAt:      now,
	}
	if err := p.stg.SetProofSession(session); err != nil {
		return nil, fmt.Errorf("error persisting proof session: %w", err)
	}
	log.Infow("proof submitted", "agent", agentID, "jobId", res.JobID, "proofId", proofID)
	return &SubmissionReceipt{
		AgentID: agentID,
		ProofID: proofID,
		JobID:   res.JobID,
		VKHash:  vkHash,
	}, nil
}

// WaitAndRecord polls the job until a terminal outcome and persists the
// proof record built from the encoding-time snapshot. Failed and timed out
// jobs still produce an unverified record for audit.
func (p *Pipeline) WaitAndRecord(ctx context.Context, jobID string) (*types.ProofRecord, error) {
	session, err := p.stg.ProofSession(jobID)
	if err != nil {
		return nil, err
	}
	result, err := p.waiter.WaitAggregation(ctx, jobID)
	if err != nil {
		return nil, err
	}
	record := &types.ProofRecord{
		AgentID:        session.AgentID,
		ProofID:        session.ProofID,
		JobID:          jobID,
		ReviewHashes:   session.ReviewHashes,
		Uptime:         session.Uptime,
		AvgExecTime:    session.AvgExecTime,
		RequestsPerDay: session.RequestsPerDay,
		CreatedAt:      time.Now(),
	}
	if result.Outcome == relayer.OutcomeAggregated {
		now := time.Now()
		record.Verified = true
		record.VerifiedAt = &now
		record.RelayerTxHash = result.TxHash
		record.RelayerBlockHash = result.BlockHash
		record.AggregationID = result.AggregationID
		record.AggregationDetails = result.AggregationDetails
		if result.AggregationDetails != nil {
			record.ReceiptHash = result.AggregationDetails.Receipt
		}
	}
	if err := p.stg.AddProofRecord(record); err != nil {
		return nil, fmt.Errorf("error persisting proof record: %w", err)
	}
	if err := p.stg.DeleteProofSession(jobID); err != nil {
		log.Warnw("failed to delete proof session", "jobId", jobID, "error", err.Error())
	}
	log.Infow("proof record written", "agent", session.AgentID,
		"jobId", jobID, "outcome", string(result.Outcome), "verified", record.Verified)
	return record, nil
}

// RunBatch runs the full proof cycle for every stored agent, sequentially.
// A failure for one agent is logged and the batch continues with the next.
func (p *Pipeline) RunBatch(ctx context.Context) error {
	agents, err := p.stg.ListAgents()
	if err != nil {
		return fmt.Errorf("error listing agents: %w", err)
	}
	log.Infow("starting proof batch", "agents", len(agents))
	for _, agent := range agents {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		receipt, err := p.GenerateAndSubmit(ctx, agent.ID)
		if err != nil {
			log.Warnw("proof generation failed", "agent", agent.ID, "error", err.Error())
			continue
		}
		if _, err := p.WaitAndRecord(ctx, receipt.JobID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warnw("aggregation wait failed", "agent", agent.ID,
				"jobId", receipt.JobID, "error", err.Error())
		}
	}
	return nil
}

// newProofID derives a unique proof identifier from the agent and the
// submission time.
func newProofID(agentID string, now time.Time) string {
	digest := sha256.Sum256([]byte(fmt.Sprintf("%s-%d", agentID, now.UnixMilli())))
	return hex.EncodeToString(digest[:])
}

// lastSamples copies the tail of a monitoring series, at most n entries.
func lastSamples[T float64 | int64](samples []T, n int) []T {
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	return append([]T{}, samples...)
}

// snapshotReviewHashes copies the content hashes the proof attests to, in
// the order they were encoded.
func snapshotReviewHashes(reviews []*types.Review) []types.HexBytes {
	limit := len(reviews)
	if limit > types.MaxReviewHashes {
		limit = types.MaxReviewHashes
	}
	hashes := make([]types.HexBytes, 0, limit)
	for _, review := range reviews[:limit] {
		hashes = append(hashes, review.ContentHash)
	}
	return hashes
}
