package errors

import (
	"errors"
	"io/fs"
)

// Category classifies an error for the caller deciding whether a failed
// save is worth re-attempting. The checkpointer itself never retries.
type Category int

const (
	// CategoryTransient indicates a manual re-attempt will likely help.
	// Examples: interrupted syscalls, temporary filesystem pressure.
	CategoryTransient Category = iota

	// CategoryPermanent indicates a re-attempt won't help.
	// Examples: permission denied, corrupt payload, bad configuration.
	CategoryPermanent
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Categorize classifies err. Configuration, decode, not-found, and
// permission errors are permanent; other I/O failures are treated as
// transient since disk pressure and interrupted writes usually clear.
func Categorize(err error) Category {
	var (
		cfg *ConfigError
		nf  *NotFoundError
		dec *DecodeError
	)
	switch {
	case errors.As(err, &cfg), errors.As(err, &nf), errors.As(err, &dec):
		return CategoryPermanent
	case errors.Is(err, fs.ErrPermission):
		return CategoryPermanent
	default:
		return CategoryTransient
	}
}
