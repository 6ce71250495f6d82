// Package storage contains all the artifacts persisted by the reputation
// node, on top of a prefixed key-value store. The following prefixes are
// used:
//   - 'a/'  for agents
//   - 'r/'  for reviews
//   - 'e/'  for employments
//   - 'p/'  for proof records
//   - 'vk/' for cached verification key registrations
//   - 's/'  for in-flight proof sessions (pending aggregation)
//
// Reviews and proof records are keyed with an inverted timestamp suffix so
// that iteration returns the most recent entries first.
package storage

import (
	"errors"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	agentPrefix   = []byte("a/")
	reviewPrefix  = []byte("r/")
	employPrefix  = []byte("e/")
	proofPrefix   = []byte("p/")
	vkPrefix      = []byte("vk/")
	sessionPrefix = []byte("s/")
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Storage wraps the key-value database with typed accessors for the
// artifacts of the reputation node.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance on top of the given database.
func New(database db.Database) *Storage {
	return &Storage{db: database}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	s.db.Close()
}

// setArtifact encodes and stores an artifact under the given prefix and key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact retrieves and decodes an artifact into out. It returns
// ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rTx.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

// deleteArtifact removes an artifact from the storage.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}
