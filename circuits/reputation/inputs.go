// Package reputation implements the reputation circuit pipeline: encoding
// agent review and monitoring history into the circuit's fixed-shape input,
// generating Groth16 proofs over the circom artifacts and verifying them
// locally before submission.
package reputation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/cloudent/reputation-node/types"
)

// CircuitInput is the full assignment consumed by the reputation circuit.
// The ratings and review hash arrays are private and have a fixed arity, the
// remaining slots are zero padded. Every claimed field must equal its private
// counterpart, the circuit enforces the equality without revealing the
// private arrays.
type CircuitInput struct {
	Ratings                []string `json:"ratings"`
	ReviewHashes           []string `json:"reviewHashes"`
	PrivateUptimeBps       string   `json:"privateUptimeBps"`
	PrivateAvgExecTimeMs   string   `json:"privateAvgExecTimeMs"`
	PrivateReqsPerDay      string   `json:"privateReqsPerDay"`
	PrivateDeploymentCount string   `json:"privateDeploymentCount"`
	AgentID                string   `json:"agentId"`
	EpochDay               string   `json:"epochDay"`
	NumRatings             string   `json:"numRatings"`
	ClaimedUptimeBps       string   `json:"claimedUptimeBps"`
	ClaimedAvgExecTimeMs   string   `json:"claimedAvgExecTimeMs"`
	ClaimedReqsPerDay      string   `json:"claimedReqsPerDay"`
	ClaimedDeploymentCount string   `json:"claimedDeploymentCount"`
	AvgScaled              string   `json:"avgScaled"`
}

// BuildCircuitInput encodes an agent's review list (most recent first) and
// monitoring history into a CircuitInput. Zero reviews is valid and yields
// all-zero arrays with numRatings and avgScaled set to "0".
func BuildCircuitInput(agent *types.Agent, reviews []*types.Review,
	deploymentCount int, now time.Time,
) (*CircuitInput, error) {
	if agent == nil {
		return nil, fmt.Errorf("agent not provided")
	}
	ratings := make([]string, types.MaxRatings)
	for i := range ratings {
		ratings[i] = "0"
	}
	reviewHashes := make([]string, types.MaxReviewHashes)
	for i := range reviewHashes {
		reviewHashes[i] = "0"
	}
	numRatings := 0
	ratingSum := 0
	for i, review := range reviews {
		if i >= types.MaxRatings {
			break
		}
		if review.Rating < types.MinRating || review.Rating > types.MaxRating {
			return nil, fmt.Errorf("review %d has rating %d out of range", i, review.Rating)
		}
		ratings[i] = strconv.Itoa(review.Rating)
		numRatings++
		ratingSum += review.Rating
		if i < types.MaxReviewHashes {
			field, err := hashToField(review.ContentHash)
			if err != nil {
				return nil, fmt.Errorf("review %d: %w", i, err)
			}
			reviewHashes[i] = field
		}
	}
	avgScaled := 0
	if numRatings > 0 {
		avgScaled = int(math.Floor(float64(ratingSum) / float64(numRatings) * types.RatingScale))
	}

	uptimeBps := int64(math.Round(sumFloats(agent.Uptime) * types.UptimeBpsScale))
	avgExecMs := int64(math.Round(meanFloats(agent.AvgExecTime)))
	totalRequests := int64(0)
	for _, r := range agent.RequestsPerDay {
		totalRequests += r
	}
	if deploymentCount < 1 {
		deploymentCount = 1
	}

	input := &CircuitInput{
		Ratings:                ratings,
		ReviewHashes:           reviewHashes,
		PrivateUptimeBps:       strconv.FormatInt(uptimeBps, 10),
		PrivateAvgExecTimeMs:   strconv.FormatInt(avgExecMs, 10),
		PrivateReqsPerDay:      strconv.FormatInt(totalRequests, 10),
		PrivateDeploymentCount: strconv.Itoa(deploymentCount),
		AgentID:                strconv.FormatInt(AgentNumericID(agent.ID), 10),
		EpochDay:               strconv.FormatInt(now.Unix()/86400, 10),
		NumRatings:             strconv.Itoa(numRatings),
		AvgScaled:              strconv.Itoa(avgScaled),
	}
	input.ClaimedUptimeBps = input.PrivateUptimeBps
	input.ClaimedAvgExecTimeMs = input.PrivateAvgExecTimeMs
	input.ClaimedReqsPerDay = input.PrivateReqsPerDay
	input.ClaimedDeploymentCount = input.PrivateDeploymentCount
	return input, nil
}

// Validate checks the fixed arity of the private arrays and that every
// claimed field mirrors its private counterpart. It is run before any
// witness computation, a divergent input would make the circuit reject.
func (ci *CircuitInput) Validate() error {
	if len(ci.Ratings) != types.MaxRatings {
		return fmt.Errorf("ratings has %d slots, want %d", len(ci.Ratings), types.MaxRatings)
	}
	if len(ci.ReviewHashes) != types.MaxReviewHashes {
		return fmt.Errorf("reviewHashes has %d slots, want %d", len(ci.ReviewHashes), types.MaxReviewHashes)
	}
	if ci.ClaimedUptimeBps != ci.PrivateUptimeBps {
		return fmt.Errorf("claimedUptimeBps %q does not match private %q",
			ci.ClaimedUptimeBps, ci.PrivateUptimeBps)
	}
	if ci.ClaimedAvgExecTimeMs != ci.PrivateAvgExecTimeMs {
		return fmt.Errorf("claimedAvgExecTimeMs %q does not match private %q",
			ci.ClaimedAvgExecTimeMs, ci.PrivateAvgExecTimeMs)
	}
	if ci.ClaimedReqsPerDay != ci.PrivateReqsPerDay {
		return fmt.Errorf("claimedReqsPerDay %q does not match private %q",
			ci.ClaimedReqsPerDay, ci.PrivateReqsPerDay)
	}
	if ci.ClaimedDeploymentCount != ci.PrivateDeploymentCount {
		return fmt.Errorf("claimedDeploymentCount %q does not match private %q",
			ci.ClaimedDeploymentCount, ci.PrivateDeploymentCount)
	}
	return nil
}

// PublicSignals returns the circuit's public signals in its declared output
// order.
func (ci *CircuitInput) PublicSignals() []string {
	return []string{
		ci.AvgScaled,
		ci.NumRatings,
		ReviewRootHash(ci.ReviewHashes),
		ci.ClaimedUptimeBps,
		ci.ClaimedAvgExecTimeMs,
		ci.ClaimedReqsPerDay,
		ci.ClaimedDeploymentCount,
		ci.AgentID,
		ci.EpochDay,
	}
}

// Encode serializes the input as the JSON document consumed by the witness
// calculator.
func (ci *CircuitInput) Encode() ([]byte, error) {
	return json.Marshal(ci)
}

// AgentNumericID folds an agent identifier string into the numeric encoding
// the circuit expects, masked to the low 20 bits of the rolling hash.
func AgentNumericID(id string) int64 {
	hash := int64(0)
	for _, char := range []byte(id) {
		hash = ((hash << 5) - hash + int64(char)) & types.AgentIDMask
	}
	return hash
}

// ReviewRootHash reduces the nonzero review hash fields to a single field
// sized decimal integer: the hash of their concatenation, truncated. The
// circuit commits to this exact construction, it is a flat hash chain and
// not a Merkle tree. Returns "0" when every slot is zero padding.
func ReviewRootHash(reviewHashes []string) string {
	concatenated := ""
	for _, h := range reviewHashes {
		if h != "0" {
			concatenated += h
		}
	}
	if concatenated == "" {
		return "0"
	}
	digest := sha256.Sum256([]byte(concatenated))
	root := new(big.Int).SetBytes(digest[:8])
	return root.String()
}

// hashToField converts a review content hash to the decimal field element
// the circuit expects, taking a fixed-length prefix of its hex encoding.
func hashToField(contentHash types.HexBytes) (string, error) {
	hexHash := hex.EncodeToString(contentHash)
	if len(hexHash) > 32 {
		hexHash = hexHash[:32]
	}
	if hexHash == "" {
		return "", fmt.Errorf("empty content hash")
	}
	field, ok := new(big.Int).SetString(hexHash, 16)
	if !ok {
		return "", fmt.Errorf("malformed content hash %q", hexHash)
	}
	return field.String(), nil
}

func sumFloats(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func meanFloats(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sumFloats(values) / float64(len(values))
}
