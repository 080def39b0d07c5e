// Package store provides abstractions for data persistence.
//
// It defines the interfaces the rest of the application programs against:
// TaskStore and CacheStore for durable, TTL'd records, and ArtifactStore for
// the process-local, non-durable audio payloads that must never be written
// to the shared metadata store. Implementations live under
// internal/platform.
package store
