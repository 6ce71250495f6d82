package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloudent/reputation-node/circuits/reputation"
	"github.com/cloudent/reputation-node/pipeline"
	stg "github.com/cloudent/reputation-node/storage"
)

// circuitInput encodes and returns the circuit input an agent's proof would
// attest to right now, without generating a proof.
func (a *API) circuitInput(w http.ResponseWriter, r *http.Request) {
	agent, ok := a.agentFromRequest(w, r)
	if !ok {
		return
	}
	reviews, err := a.storage.ReviewsByAgent(agent.ID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	employments, err := a.storage.EmploymentsByAgent(agent.ID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	input, err := reputation.BuildCircuitInput(agent, reviews, len(employments), time.Now())
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	totalUptime := 0.0
	for _, h := range agent.Uptime {
		totalUptime += h
	}
	totalRequests := int64(0)
	for _, n := range agent.RequestsPerDay {
		totalRequests += n
	}
	httpWriteJSON(w, &CircuitInputResponse{
		InputData: input,
		AgentInfo: AgentInfo{
			ID:              agent.ID,
			Name:            agent.Name,
			ReviewsCount:    len(reviews),
			EmploymentCount: len(employments),
			TotalUptime:     totalUptime,
			TotalRequests:   totalRequests,
		},
	})
}

// generateProof runs the synchronous half of the proof cycle for an agent
// and returns the submission receipt with the job to wait on.
func (a *API) generateProof(w http.ResponseWriter, r *http.Request) {
	agent, ok := a.agentFromRequest(w, r)
	if !ok {
		return
	}
	receipt, err := a.pipeline.GenerateAndSubmit(r.Context(), agent.ID)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrOptimisticRejected):
			ErrProofRejected.WithErr(err).Write(w)
		case errors.Is(err, reputation.ErrArtifactNotFound):
			ErrProofGenerationFailed.WithErr(err).Write(w)
		case errors.Is(err, reputation.ErrWitness), errors.Is(err, reputation.ErrProving):
			ErrProofGenerationFailed.WithErr(err).Write(w)
		default:
			ErrRelayerUnavailable.WithErr(err).Write(w)
		}
		return
	}
	httpWriteJSON(w, receipt)
}

// waitAggregation blocks until the job reaches a terminal outcome and
// returns the persisted proof record. Timed out and failed jobs return an
// unverified record, not an error.
func (a *API) waitAggregation(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, JobURLParam)
	record, err := a.pipeline.WaitAndRecord(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, stg.ErrNotFound) {
			ErrJobNotFound.Withf("id %s", jobID).Write(w)
		} else {
			ErrRelayerUnavailable.WithErr(err).Write(w)
		}
		return
	}
	httpWriteJSON(w, record)
}

// proofRecordList returns the proof records of an agent, most recent first.
func (a *API) proofRecordList(w http.ResponseWriter, r *http.Request) {
	agent, ok := a.agentFromRequest(w, r)
	if !ok {
		return
	}
	records, err := a.storage.ProofRecordsByAgent(agent.ID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &ProofRecordList{Proofs: records})
}
