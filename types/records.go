package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Agent is a marketplace subject whose reputation is attested by proofs.
// The monitoring history is kept as parallel per-sample slices; the
// monitoring collaborator appends one entry of each per sample.
type Agent struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Creator        common.Address `json:"creator"`
	Uptime         []float64      `json:"uptime"`
	AvgExecTime    []float64      `json:"avgExecTime"`
	RequestsPerDay []int64        `json:"requestsPerDay"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// MonitoringSample is one periodic measurement appended to an agent's
// monitoring history.
type MonitoringSample struct {
	UptimeHours   float64 `json:"uptimeHours"`
	AvgExecTimeMs float64 `json:"avgExecTimeMs"`
	RequestCount  int64   `json:"requestCount"`
}

// Review is an immutable end-user review of an agent. ContentHash is the
// keccak256 hash of the review content, computed at ingest.
type Review struct {
	AgentID     string         `json:"agentId"`
	Author      common.Address `json:"author"`
	Rating      int            `json:"rating"`
	ContentHash HexBytes       `json:"contentHash"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Employment is an active user/agent relationship. The number of employments
// of an agent backs the deployment count claimed in its proofs.
type Employment struct {
	AgentID   string         `json:"agentId"`
	User      common.Address `json:"user"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AggregationDetails carries the settlement chain receipt of an aggregated
// proof, as reported by the relayer.
type AggregationDetails struct {
	Receipt          string `json:"receipt,omitempty"`
	ReceiptBlockHash string `json:"receiptBlockHash,omitempty"`
	Root             string `json:"root,omitempty"`
	Leaf             string `json:"leaf,omitempty"`
	LeafIndex        int64  `json:"leafIndex,omitempty"`
	NumberOfLeaves   int64  `json:"numberOfLeaves,omitempty"`
}

// ProofSession is the in-flight state of a submitted proof, keyed by the
// relayer job identifier. It snapshots the inputs as they were encoded so
// the record written after aggregation does not depend on data ingested in
// the meantime.
type ProofSession struct {
	AgentID        string     `json:"agentId"`
	ProofID        string     `json:"proofId"`
	JobID          string     `json:"jobId"`
	ReviewHashes   []HexBytes `json:"reviewHashes"`
	Uptime         []float64  `json:"uptime"`
	AvgExecTime    []float64  `json:"avgExecTime"`
	RequestsPerDay []int64    `json:"requestsPerDay"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// VKRegistration is the cached result of registering a verification key
// with the relayer, keyed by the circuit identifier.
type VKRegistration struct {
	CircuitID    string    `json:"circuitId"`
	VKHash       string    `json:"vkHash"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// ProofRecord is the append-only result of one proof cycle for an agent. It
// snapshots the review hashes and the last MonitoringWindow monitoring
// aggregates as they were at encoding time. Verified is true only when the
// relayer reported the proof aggregated; failed and timed out cycles still
// produce a record for audit.
type ProofRecord struct {
	AgentID            string              `json:"agentId"`
	ProofID            string              `json:"proofId"`
	JobID              string              `json:"jobId"`
	ReviewHashes       []HexBytes          `json:"reviewHashes"`
	Uptime             []float64           `json:"uptime"`
	AvgExecTime        []float64           `json:"avgExecTime"`
	RequestsPerDay     []int64             `json:"requestsPerDay"`
	RelayerTxHash      string              `json:"relayerTxHash,omitempty"`
	RelayerBlockHash   string              `json:"relayerBlockHash,omitempty"`
	ReceiptHash        string              `json:"receiptHash,omitempty"`
	AggregationID      int64               `json:"aggregationId,omitempty"`
	AggregationDetails *AggregationDetails `json:"aggregationDetails,omitempty"`
	Verified           bool                `json:"verified"`
	VerifiedAt         *time.Time          `json:"verifiedAt,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
}
