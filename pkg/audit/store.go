// Package audit persists the terminal outcome of every relayed request.
//
// The store is an operational record, not a payload archive: it keeps who
// asked for which model, how the relay resolved the request, and how long it
// took. Request and response bodies are never stored.
package audit

import (
	"context"
	"time"
)

// Record is one relayed request's terminal outcome.
type Record struct {
	// ID is the request ID the relay assigned (or the client provided).
	ID string

	// Model is the requested model, when the request body carried one.
	Model string

	// Path is the relayed endpoint path.
	Path string

	// Outcome is the terminal classification: "success",
	// "permanent_failure", "retries_exhausted", "stream_interrupted",
	// "rejected".
	Outcome string

	// StatusCode is the HTTP status returned to the client.
	StatusCode int

	// Attempts is how many backend calls the request consumed.
	Attempts int

	// Duration is the end-to-end request latency.
	Duration time.Duration

	// CreatedAt is when the record was written.
	CreatedAt time.Time
}

// Store persists audit records.
type Store interface {
	// Insert writes one record.
	Insert(ctx context.Context, rec *Record) error

	// Prune deletes records older than the cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the store's resources.
	Close() error
}

// NopStore discards all records. It is used when auditing is disabled so the
// handlers never branch on a nil store.
type NopStore struct{}

// Insert discards the record.
func (NopStore) Insert(ctx context.Context, rec *Record) error { return nil }

// Prune reports nothing to prune.
func (NopStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) { return 0, nil }

// Close is a no-op.
func (NopStore) Close() error { return nil }
