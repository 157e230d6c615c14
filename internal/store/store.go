// Package store adapts note-level intents onto a key-value store's
// single-item conditional operations. Every implementation provides
// the same guarantee: the existence check and the mutation it gates
// are evaluated atomically by the store, so concurrent callers never
// observe a read-then-write race. All failures surface as apierr
// taxonomy errors; backend detail never leaks past this package.
package store

import (
	"context"
	"time"

	"github.com/mrshanahan/notes-service/pkg/notes"
)

// Patch is the set of fields an update is allowed to touch.
type Patch struct {
	Name      string
	UpdatedAt time.Time
}

// ScanResult reports a full-table scan. ScannedCount is the number of
// records the store examined; Count is the number returned.
type ScanResult struct {
	Items        []*notes.Note
	Count        int
	ScannedCount int
}

type Store interface {
	// InsertIfAbsent stores note only if no record with its ID
	// exists; a CONFLICT error means one did.
	InsertIfAbsent(ctx context.Context, note *notes.Note) (*notes.Note, error)

	// UpdateIfPresent applies patch to the record with the given ID
	// and returns the resulting full record, or NOT_FOUND if no such
	// record exists.
	UpdateIfPresent(ctx context.Context, id string, patch Patch) (*notes.Note, error)

	// DeleteIfPresent removes the record with the given ID and
	// returns it as it was immediately before removal, or NOT_FOUND.
	DeleteIfPresent(ctx context.Context, id string) (*notes.Note, error)

	// GetByID returns the current record, or (nil, nil) when absent.
	// Absence is a normal outcome here, unlike update/delete.
	GetByID(ctx context.Context, id string) (*notes.Note, error)

	// ScanAll returns every record currently stored. No ordering
	// guarantee.
	ScanAll(ctx context.Context) (*ScanResult, error)

	Close() error
}
