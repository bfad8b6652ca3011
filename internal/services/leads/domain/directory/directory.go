// Package directory provides read-only lookup of vendor and PM records.
package directory

import (
	"context"
	"strings"
)

// Kind identifies the type of a directory entry.
type Kind string

const (
	// KindVendor is a vendor record.
	KindVendor Kind = "vendor"
	// KindPM is a project manager record.
	KindPM Kind = "pm"
)

// Entry is one directory record. Specialization is only meaningful for
// vendors.
type Entry struct {
	Kind           Kind
	ID             string
	Name           string
	Email          string
	Company        string
	Specialization string
}

// Unknown reports whether the entry is the sentinel for a missing record.
func (e Entry) Unknown() bool {
	return e.Name == UnknownName
}

// Sentinel field values for entries the directory cannot resolve. The lead
// workflow must keep moving on directory inconsistency, so misses yield a
// usable placeholder instead of an error.
const (
	UnknownName    = "Unknown"
	UnknownEmail   = "unknown@example.com"
	UnknownCompany = "Unknown"
)

// UnknownEntry returns the sentinel entry for an unresolvable ID.
func UnknownEntry(kind Kind, id string) Entry {
	return Entry{
		Kind:    kind,
		ID:      strings.TrimSpace(id),
		Name:    UnknownName,
		Email:   UnknownEmail,
		Company: UnknownCompany,
	}
}

// Resolver looks up directory entries by opaque ID. Implementations
// return storage.ErrNotFound-style failures; callers that must not block
// on directory inconsistency substitute UnknownEntry on any failure.
type Resolver interface {
	Vendor(ctx context.Context, id string) (Entry, error)
	PM(ctx context.Context, id string) (Entry, error)
}
