// Package project provides the project entity owning lead invitations.
package project

import (
	"strings"
	"time"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
)

var (
	// ErrEmptyID indicates a missing project ID.
	ErrEmptyID = apperrors.New(apperrors.CodeProjectEmptyID, "project id is required")
	// ErrEmptyOwner indicates a missing owning PM.
	ErrEmptyOwner = apperrors.New(apperrors.CodeProjectEmptyOwner, "project owner is required")
	// ErrEmptyName indicates a missing project name.
	ErrEmptyName = apperrors.New(apperrors.CodeProjectEmptyName, "project name is required")
)

// Project groups leads under one owning PM. Vendor lists are append-only
// denormalizations maintained as leads transition; the lead records remain
// the source of truth.
type Project struct {
	ID              string
	PmID            string
	Name            string
	Description     string
	WorkspaceID     string
	InvitedVendors  []string
	ApprovedVendors []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Normalize trims and validates project metadata.
func Normalize(p Project) (Project, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return Project{}, ErrEmptyID
	}
	p.PmID = strings.TrimSpace(p.PmID)
	if p.PmID == "" {
		return Project{}, ErrEmptyOwner
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Project{}, ErrEmptyName
	}
	return p, nil
}

// HasInvitedVendor reports whether vendorID already appears in the invited list.
func (p Project) HasInvitedVendor(vendorID string) bool {
	return contains(p.InvitedVendors, vendorID)
}

// HasApprovedVendor reports whether vendorID already appears in the approved list.
func (p Project) HasApprovedVendor(vendorID string) bool {
	return contains(p.ApprovedVendors, vendorID)
}

func contains(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}
