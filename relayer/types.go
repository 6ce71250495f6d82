// Package relayer implements the client side of the proof verification and
// aggregation relayer: verification key registration, proof submission with
// synchronous optimistic verification and polling of aggregation jobs until
// a terminal state.
package relayer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudent/reputation-node/types"
)

const (
	// ProofType is the proof system identifier sent with every request.
	ProofType = "groth16"
	// ProofLibrary is the proving library tag the relayer expects.
	ProofLibrary = "snarkjs"
	// ProofCurve is the curve identifier of the circuit.
	ProofCurve = "bn128"
	// DefaultChainID is the settlement chain the proofs are aggregated to.
	DefaultChainID = 845320009

	// OptimisticVerifySuccess is the only submission result that allows
	// polling to start.
	OptimisticVerifySuccess = "success"

	// Terminal job status values reported by the relayer.
	JobStatusAggregated = "Aggregated"
	JobStatusFinalized  = "Finalized"
	JobStatusFailed     = "Failed"

	registerVKFailedCode = "REGISTER_VK_FAILED"
)

// ProofOptions identifies the proving library and curve of a submission.
type ProofOptions struct {
	Library string `json:"library"`
	Curve   string `json:"curve"`
}

// DefaultProofOptions returns the options for snarkjs Groth16 proofs over
// bn128.
func DefaultProofOptions() ProofOptions {
	return ProofOptions{Library: ProofLibrary, Curve: ProofCurve}
}

// RegisterVKRequest is the body of POST /register-vk/{apiKey}.
type RegisterVKRequest struct {
	ProofType    string          `json:"proofType"`
	ProofOptions ProofOptions    `json:"proofOptions"`
	VK           json.RawMessage `json:"vk"`
}

// RegisterVKResponse is the success payload of the registration endpoint.
// The hash may come top-level or under meta.
type RegisterVKResponse struct {
	VKHash string `json:"vkHash,omitempty"`
	Meta   *struct {
		VKHash string `json:"vkHash,omitempty"`
	} `json:"meta,omitempty"`
}

// Hash returns the verification key hash wherever the relayer put it.
func (r *RegisterVKResponse) Hash() string {
	if r.VKHash != "" {
		return r.VKHash
	}
	if r.Meta != nil {
		return r.Meta.VKHash
	}
	return ""
}

// ProofData carries the proof material of a submission.
type ProofData struct {
	Proof         json.RawMessage `json:"proof"`
	PublicSignals []string        `json:"publicSignals"`
	VK            string          `json:"vk"`
}

// SubmitProofRequest is the body of POST /submit-proof/{apiKey}.
type SubmitProofRequest struct {
	ProofType    string       `json:"proofType"`
	VKRegistered bool         `json:"vkRegistered"`
	ChainID      int64        `json:"chainId"`
	ProofOptions ProofOptions `json:"proofOptions"`
	ProofData    ProofData    `json:"proofData"`
}

// SubmitProofResponse carries the synchronous optimistic verification result
// and the job identifier to poll.
type SubmitProofResponse struct {
	OptimisticVerify string `json:"optimisticVerify"`
	JobID            string `json:"jobId"`
}

// JobStatusResponse is the payload of GET /job-status/{apiKey}/{jobId}.
type JobStatusResponse struct {
	Status             string                    `json:"status"`
	TxHash             string                    `json:"txHash,omitempty"`
	BlockHash          string                    `json:"blockHash,omitempty"`
	AggregationID      int64                     `json:"aggregationId,omitempty"`
	AggregationDetails *types.AggregationDetails `json:"aggregationDetails,omitempty"`
	Statement          string                    `json:"statement,omitempty"`
}

// Terminal reports whether the status will not change with further polling.
func (r *JobStatusResponse) Terminal() bool {
	switch r.Status {
	case JobStatusAggregated, JobStatusFinalized, JobStatusFailed:
		return true
	}
	return false
}

// APIError is the error payload of the relayer, decoded once at the HTTP
// boundary. The meta block may carry a recoverable verification key hash
// when registration failed because the key already exists.
type APIError struct {
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	HTTPStatus int    `json:"-"`
	Meta       struct {
		VKHash string `json:"vkHash,omitempty"`
	} `json:"meta,omitempty"`
}

// Error returns the string representation of the error.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("relayer error %s (http %d): %s", e.Code, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("relayer error (http %d): %s", e.HTTPStatus, e.Message)
}

// AlreadyRegistered reports whether the error is the recoverable "key
// already registered" case, returning the registered hash.
func (e *APIError) AlreadyRegistered() (string, bool) {
	if e.Code == registerVKFailedCode &&
		strings.Contains(strings.ToLower(e.Message), "already registered") &&
		e.Meta.VKHash != "" {
		return e.Meta.VKHash, true
	}
	return "", false
}
