package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cloudent/reputation-node/log"
)

// VKCache persists verification key hashes across registrations, keyed by
// circuit identity. Get returns an empty string when the circuit has no
// cached hash. Implementations must tolerate concurrent use, a benign race
// where two registrations store the same hash is acceptable.
type VKCache interface {
	Get(circuitID string) (string, error)
	Set(circuitID, vkHash string) error
}

// Registrar idempotently obtains the verification key hash required by proof
// submissions. Registration runs at most once per circuit, later calls hit
// the cache.
type Registrar struct {
	client *Client
	cache  VKCache
	mu     sync.Mutex
}

// NewRegistrar creates a Registrar over the given relayer client and cache.
func NewRegistrar(client *Client, cache VKCache) *Registrar {
	return &Registrar{client: client, cache: cache}
}

// EnsureRegistered returns the vkHash for the circuit, registering the
// verification key with the relayer only if the cache has no entry. A
// relayer "already registered" error carrying the existing hash is treated
// as success.
func (r *Registrar) EnsureRegistered(ctx context.Context, circuitID string, vk json.RawMessage) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hash, err := r.cache.Get(circuitID); err != nil {
		return "", fmt.Errorf("error reading vk cache: %w", err)
	} else if hash != "" {
		return hash, nil
	}
	res, err := r.client.RegisterVK(ctx, vk)
	var hash string
	if err != nil {
		apiErr := &APIError{}
		if !errors.As(err, &apiErr) {
			return "", fmt.Errorf("vk registration failed: %w", err)
		}
		recovered, ok := apiErr.AlreadyRegistered()
		if !ok {
			return "", fmt.Errorf("vk registration failed: %w", apiErr)
		}
		log.Infow("verification key already registered", "circuit", circuitID, "vkHash", recovered)
		hash = recovered
	} else {
		hash = res.Hash()
		if hash == "" {
			return "", fmt.Errorf("relayer did not return a vkHash")
		}
		log.Infow("verification key registered", "circuit", circuitID, "vkHash", hash)
	}
	if err := r.cache.Set(circuitID, hash); err != nil {
		return "", fmt.Errorf("error writing vk cache: %w", err)
	}
	return hash, nil
}

// FileVKCache is a VKCache backed by a single JSON file, for running the
// pipeline without a database.
type FileVKCache struct {
	path string
	mu   sync.Mutex
}

// NewFileVKCache creates a file backed cache at the given path.
func NewFileVKCache(path string) *FileVKCache {
	return &FileVKCache{path: path}
}

func (f *FileVKCache) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	hashes := map[string]string{}
	if err := json.Unmarshal(data, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

// Get returns the cached hash of a circuit, or an empty string.
func (f *FileVKCache) Get(circuitID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hashes, err := f.load()
	if err != nil {
		return "", err
	}
	return hashes[circuitID], nil
}

// Set stores the hash of a circuit.
func (f *FileVKCache) Set(circuitID, vkHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	hashes, err := f.load()
	if err != nil {
		return err
	}
	hashes[circuitID] = vkHash
	data, err := json.Marshal(hashes)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o644)
}
