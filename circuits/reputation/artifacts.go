package reputation

import (
	"github.com/cloudent/reputation-node/circuits"
	"github.com/cloudent/reputation-node/config"
	"github.com/cloudent/reputation-node/types"
)

// CircuitID identifies the reputation circuit in the verification key cache.
const CircuitID = "reputation-v1"

// Artifacts contains the reputation circuit artifacts with their remote
// locations and expected hashes.
var Artifacts = circuits.NewCircuitArtifacts(
	&circuits.Artifact{
		RemoteURL: config.ReputationCircuitURL,
		Hash:      types.HexStringToHexBytes(config.ReputationCircuitHash),
	},
	&circuits.Artifact{
		RemoteURL: config.ReputationProvingKeyURL,
		Hash:      types.HexStringToHexBytes(config.ReputationProvingKeyHash),
	},
	&circuits.Artifact{
		RemoteURL: config.ReputationVerificationKeyURL,
		Hash:      types.HexStringToHexBytes(config.ReputationVerificationKeyHash),
	},
)
