// Package memory provides the process-local artifact store.
//
// Produced audio payloads are large and non-serializable into the metadata
// store, so they live only in the memory of the instance that ran the
// conversion, keyed by artifact reference. Durability is explicitly not a
// property of this store: a restart loses every payload, and the durable
// task record must tolerate that.
package memory

import (
	"sync"
	"time"
)

type artifact struct {
	data     []byte
	storedAt time.Time
}

// ArtifactStore is a concurrency-safe in-memory byte store.
type ArtifactStore struct {
	mu        sync.RWMutex
	artifacts map[string]artifact
}

// NewArtifactStore creates an empty ArtifactStore.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		artifacts: make(map[string]artifact),
	}
}

// Put stores the payload under the given reference, overwriting any
// previous payload.
func (s *ArtifactStore) Put(ref string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[ref] = artifact{data: data, storedAt: time.Now()}
}

// Get returns the payload for the reference, or false if this process does
// not hold it.
func (s *ArtifactStore) Get(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[ref]
	if !ok {
		return nil, false
	}
	return a.data, true
}

// Delete drops the payload. Idempotent.
func (s *ArtifactStore) Delete(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, ref)
}

// Sweep drops payloads stored longer than maxAge, returning the number
// removed. Keeps memory bounded alongside the TTL of the durable records.
func (s *ArtifactStore) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for ref, a := range s.artifacts {
		if a.storedAt.Before(cutoff) {
			delete(s.artifacts, ref)
			removed++
		}
	}
	return removed
}

// Len returns the number of payloads currently held.
func (s *ArtifactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artifacts)
}
