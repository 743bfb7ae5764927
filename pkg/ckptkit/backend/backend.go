// Package backend provides checkpoint I/O: serializing snapshots to a
// destination path and reading or removing them again.
//
// Implementations must be safe for concurrent use. The capability
// interface is deliberately small so test doubles can decorate a real
// implementation (see Recorder) and callers can swap storage without
// touching retention logic.
package backend

import (
	"context"
	"errors"
)

// Interface is the checkpoint I/O contract.
type Interface interface {
	// Save writes data to path, creating parent storage as needed.
	// Overwrites an existing checkpoint at path.
	Save(ctx context.Context, path string, data []byte) error

	// Load returns the data stored at path.
	// Returns *errors.NotFoundError if nothing is stored there and
	// *errors.DecodeError if the content is corrupt.
	Load(ctx context.Context, path string) ([]byte, error)

	// Remove deletes the checkpoint at path.
	// Removing an absent path is not an error.
	Remove(ctx context.Context, path string) error

	// Close releases any resources (connections, pools).
	Close() error
}

// PathChecker is implemented by backends that can cheaply test whether
// a checkpoint exists at a path without loading it.
type PathChecker interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// Drainer is implemented by backends that buffer writes and need an
// explicit drain before process exit.
type Drainer interface {
	Drain(ctx context.Context) error
}

// ErrClosed indicates the backend has been closed.
var ErrClosed = errors.New("checkpoint backend closed")
