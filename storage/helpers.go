package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encodeArtifact serializes an artifact with deterministic CBOR encoding.
func encodeArtifact(artifact any) ([]byte, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("error creating CBOR encoder: %w", err)
	}
	data, err := em.Marshal(artifact)
	if err != nil {
		return nil, fmt.Errorf("error encoding artifact: %w", err)
	}
	return data, nil
}

// decodeArtifact deserializes a CBOR-encoded artifact into out.
func decodeArtifact(data []byte, out any) error {
	if err := cbor.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error decoding artifact: %w", err)
	}
	return nil
}

// invTimestamp returns an 8-byte big-endian encoding of the bitwise
// complement of ts. Keys built with it sort newest first.
func invTimestamp(ts int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, ^uint64(ts))
	return b
}

// composeKey joins an identifier with a separator and a suffix, used to
// build per-agent keys like "<agentID>/<invTimestamp>".
func composeKey(id string, suffix []byte) []byte {
	key := make([]byte, 0, len(id)+1+len(suffix))
	key = append(key, []byte(id)...)
	key = append(key, '/')
	key = append(key, suffix...)
	return key
}
