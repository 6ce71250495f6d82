package reputation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/iden3/go-rapidsnark/prover"
	"github.com/iden3/go-rapidsnark/witness"
	"github.com/vocdoni/circom2gnark/parser"

	"github.com/cloudent/reputation-node/circuits"
	"github.com/cloudent/reputation-node/log"
)

// Error taxonomy of the proof generator. A missing artifact is a fatal
// configuration error, a witness error means the input violated the circuit
// and a proving error is an internal fault of the proving library.
var (
	ErrArtifactNotFound = errors.New("circuit artifact not found")
	ErrWitness          = errors.New("witness computation failed")
	ErrProving          = errors.New("proof generation failed")
)

// ProofArtifact is the immutable output of one proving run: the Groth16
// proof and the ordered public signals, both as the JSON documents emitted
// by the prover.
type ProofArtifact struct {
	Proof         json.RawMessage `json:"proof"`
	PublicSignals []string        `json:"publicSignals"`
}

// SaveFiles persists the artifact as proof.json and public.json in dir.
func (pa *ProofArtifact) SaveFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating artifact directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "proof.json"), pa.Proof, 0o644); err != nil {
		return fmt.Errorf("error writing proof file: %w", err)
	}
	pubSignals, err := json.Marshal(pa.PublicSignals)
	if err != nil {
		return fmt.Errorf("error encoding public signals: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "public.json"), pubSignals, 0o644); err != nil {
		return fmt.Errorf("error writing public signals file: %w", err)
	}
	return nil
}

// LoadProofArtifact reads back an artifact persisted with SaveFiles.
func LoadProofArtifact(dir string) (*ProofArtifact, error) {
	proof, err := os.ReadFile(filepath.Join(dir, "proof.json"))
	if err != nil {
		return nil, fmt.Errorf("error reading proof file: %w", err)
	}
	rawPubSignals, err := os.ReadFile(filepath.Join(dir, "public.json"))
	if err != nil {
		return nil, fmt.Errorf("error reading public signals file: %w", err)
	}
	var pubSignals []string
	if err := json.Unmarshal(rawPubSignals, &pubSignals); err != nil {
		return nil, fmt.Errorf("error decoding public signals: %w", err)
	}
	return &ProofArtifact{Proof: proof, PublicSignals: pubSignals}, nil
}

// Prover generates and locally verifies Groth16 proofs over the reputation
// circuit artifacts. It is safe for concurrent use, each proving run gets
// its own scratch file.
type Prover struct {
	artifacts  *circuits.CircuitArtifacts
	scratchDir string
}

// NewProver creates a Prover over already loaded circuit artifacts. Scratch
// input files are written under scratchDir, which defaults to the system
// temporary directory.
func NewProver(artifacts *circuits.CircuitArtifacts, scratchDir string) (*Prover, error) {
	if artifacts == nil {
		return nil, fmt.Errorf("%w: no artifacts provided", ErrArtifactNotFound)
	}
	if len(artifacts.WitnessWasm()) == 0 {
		return nil, fmt.Errorf("%w: witness wasm", ErrArtifactNotFound)
	}
	if len(artifacts.ProvingKey()) == 0 {
		return nil, fmt.Errorf("%w: proving key", ErrArtifactNotFound)
	}
	if len(artifacts.VerificationKey()) == 0 {
		return nil, fmt.Errorf("%w: verification key", ErrArtifactNotFound)
	}
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return &Prover{artifacts: artifacts, scratchDir: scratchDir}, nil
}

// VerificationKey returns the circuit's verification key JSON.
func (p *Prover) VerificationKey() []byte {
	return p.artifacts.VerificationKey()
}

// Prove computes the witness for the given input and runs Groth16 proving
// over it. The scratch input file is removed on every exit path.
func (p *Prover) Prove(input *CircuitInput) (*ProofArtifact, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWitness, err)
	}
	encodedInput, err := input.Encode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWitness, err)
	}
	// scratch file path is unique per invocation so concurrent runs cannot
	// collide
	inputPath := filepath.Join(p.scratchDir, fmt.Sprintf("input_%s.json", uuid.New().String()))
	if err := os.WriteFile(inputPath, encodedInput, 0o600); err != nil {
		return nil, fmt.Errorf("error writing scratch input file: %w", err)
	}
	defer func() {
		if err := os.Remove(inputPath); err != nil {
			log.Warnw("failed to remove scratch input file", "path", inputPath, "error", err.Error())
		}
	}()

	parsedInputs, err := witness.ParseInputs(encodedInput)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWitness, err)
	}
	calc, err := witness.NewCircom2WitnessCalculator(p.artifacts.WitnessWasm(), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWitness, err)
	}
	wtns, err := calc.CalculateWTNSBin(parsedInputs, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWitness, err)
	}
	proofJSON, pubSignalsJSON, err := prover.Groth16ProverRaw(p.artifacts.ProvingKey(), wtns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProving, err)
	}
	var pubSignals []string
	if err := json.Unmarshal([]byte(pubSignalsJSON), &pubSignals); err != nil {
		return nil, fmt.Errorf("%w: malformed public signals: %v", ErrProving, err)
	}
	return &ProofArtifact{
		Proof:         json.RawMessage(proofJSON),
		PublicSignals: pubSignals,
	}, nil
}

// Verify checks the proof locally against the circuit's verification key
// before it is sent anywhere.
func (p *Prover) Verify(artifact *ProofArtifact) error {
	circomProof, err := parser.UnmarshalCircomProofJSON(artifact.Proof)
	if err != nil {
		return fmt.Errorf("error parsing proof: %w", err)
	}
	rawPubSignals, err := json.Marshal(artifact.PublicSignals)
	if err != nil {
		return fmt.Errorf("error encoding public signals: %w", err)
	}
	pubSignals, err := parser.UnmarshalCircomPublicSignalsJSON(rawPubSignals)
	if err != nil {
		return fmt.Errorf("error parsing public signals: %w", err)
	}
	vk, err := parser.UnmarshalCircomVerificationKeyJSON(p.artifacts.VerificationKey())
	if err != nil {
		return fmt.Errorf("error parsing verification key: %w", err)
	}
	gnarkProof, err := parser.ConvertCircomToGnark(circomProof, vk, pubSignals)
	if err != nil {
		return fmt.Errorf("error converting proof: %w", err)
	}
	if ok, err := parser.VerifyProof(gnarkProof); !ok || err != nil {
		return fmt.Errorf("proof verification failed: %v", err)
	}
	return nil
}
