package storage

import (
	"errors"
	"time"

	"github.com/cloudent/reputation-node/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// AddProofRecord appends a proof record for an agent. Records are never
// updated in place, every proof cycle writes a new one.
func (s *Storage) AddProofRecord(record *types.ProofRecord) error {
	key := composeKey(record.AgentID, invTimestamp(record.CreatedAt.UnixNano()))
	key = append(key, []byte(record.ProofID)...)
	return s.setArtifact(proofPrefix, key, record)
}

// ProofRecordsByAgent returns the proof records of an agent, most recent
// first.
func (s *Storage) ProofRecordsByAgent(agentID string) ([]*types.ProofRecord, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, proofPrefix)
	var records []*types.ProofRecord
	var iterErr error
	if err := rTx.Iterate([]byte(agentID+"/"), func(_, v []byte) bool {
		record := &types.ProofRecord{}
		if err := decodeArtifact(v, record); err != nil {
			iterErr = err
			return false
		}
		records = append(records, record)
		return true
	}); err != nil {
		return nil, err
	}
	if iterErr != nil {
		return nil, iterErr
	}
	return records, nil
}

// SetVKRegistration caches a successful verification key registration.
func (s *Storage) SetVKRegistration(reg *types.VKRegistration) error {
	return s.setArtifact(vkPrefix, []byte(reg.CircuitID), reg)
}

// VKRegistration returns the cached registration of a circuit, or
// ErrNotFound if the key was never registered.
func (s *Storage) VKRegistration(circuitID string) (*types.VKRegistration, error) {
	reg := &types.VKRegistration{}
	if err := s.getArtifact(vkPrefix, []byte(circuitID), reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// SetProofSession stores the in-flight state of a submitted proof, keyed by
// the relayer job ID.
func (s *Storage) SetProofSession(session *types.ProofSession) error {
	return s.setArtifact(sessionPrefix, []byte(session.JobID), session)
}

// ProofSession returns the in-flight state of a submitted proof.
func (s *Storage) ProofSession(jobID string) (*types.ProofSession, error) {
	session := &types.ProofSession{}
	if err := s.getArtifact(sessionPrefix, []byte(jobID), session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteProofSession removes a proof session once its record is written.
func (s *Storage) DeleteProofSession(jobID string) error {
	return s.deleteArtifact(sessionPrefix, []byte(jobID))
}

// VKCacheStore exposes the verification key registration bucket as the
// cache consumed by the relayer registrar. A missing entry reads as an
// empty hash, not an error.
type VKCacheStore struct {
	s *Storage
}

// VKCache returns the verification key cache view of the storage.
func (s *Storage) VKCache() *VKCacheStore {
	return &VKCacheStore{s: s}
}

// Get returns the cached hash of a circuit, or an empty string.
func (v *VKCacheStore) Get(circuitID string) (string, error) {
	reg, err := v.s.VKRegistration(circuitID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return reg.VKHash, nil
}

// Set stores the hash of a circuit.
func (v *VKCacheStore) Set(circuitID, vkHash string) error {
	return v.s.SetVKRegistration(&types.VKRegistration{
		CircuitID:    circuitID,
		VKHash:       vkHash,
		RegisteredAt: time.Now(),
	})
}
