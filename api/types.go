package api

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cloudent/reputation-node/circuits/reputation"
	"github.com/cloudent/reputation-node/types"
)

// NewAgentRequest is the body of POST /agents.
type NewAgentRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Creator     common.Address `json:"creator"`
}

// NewReviewRequest is the body of POST /agents/{agentId}/reviews. The
// content hash is computed server side at ingest.
type NewReviewRequest struct {
	Author  common.Address `json:"author"`
	Rating  int            `json:"rating"`
	Content string         `json:"content"`
}

// NewEmploymentRequest is the body of POST /agents/{agentId}/employments.
type NewEmploymentRequest struct {
	User common.Address `json:"user"`
}

// CircuitInputResponse carries the encoded input together with agent
// context, mirroring what the proof pipeline would encode right now.
type CircuitInputResponse struct {
	InputData *reputation.CircuitInput `json:"inputData"`
	AgentInfo AgentInfo                `json:"agentInfo"`
}

// AgentInfo is the human readable context of a circuit input.
type AgentInfo struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	ReviewsCount    int     `json:"reviewsCount"`
	EmploymentCount int     `json:"employmentCount"`
	TotalUptime     float64 `json:"totalUptime"`
	TotalRequests   int64   `json:"totalRequests"`
}

// AgentList is the response of GET /agents.
type AgentList struct {
	Agents []*types.Agent `json:"agents"`
}

// ReviewList is the response of GET /agents/{agentId}/reviews.
type ReviewList struct {
	Reviews []*types.Review `json:"reviews"`
}

// EmploymentList is the response of GET /agents/{agentId}/employments.
type EmploymentList struct {
	Employments []*types.Employment `json:"employments"`
}

// ProofRecordList is the response of GET /agents/{agentId}/proofs.
type ProofRecordList struct {
	Proofs []*types.ProofRecord `json:"proofs"`
}
