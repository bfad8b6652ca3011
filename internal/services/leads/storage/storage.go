// Package storage defines the persistence boundary for the leads service.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write conflicts with uniqueness constraints.
	ErrConflict = errors.New("record conflict")
	// ErrStatusChanged indicates a conditional lead write lost the race: the
	// stored status no longer matches the status the caller read.
	ErrStatusChanged = errors.New("lead status changed")
	// ErrConcurrentUpdate indicates a conditional write lost the race: the
	// stored row changed since the caller read it.
	ErrConcurrentUpdate = errors.New("record changed concurrently")
)

// LeadRecord stores one lead invitation row. Structured payloads are kept
// as JSON columns; the domain adapter owns encoding and decoding.
type LeadRecord struct {
	ID                  string
	ProjectID           string
	PmID                string
	VendorID            string
	WorkspaceID         string
	Status              string
	DetailsJSON         string
	VendorSnapshotJSON  string
	ProjectSnapshotJSON string
	VendorResponseJSON  string
	PmDecisionJSON      string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// LeadPage stores a paged lead listing result.
type LeadPage struct {
	Leads         []LeadRecord
	NextPageToken string
}

// LeadStore persists lead lifecycle state. The lead row is the canonical
// source of truth for the workflow.
type LeadStore interface {
	// PutLead inserts a new lead. Returns ErrConflict when the ID exists.
	PutLead(ctx context.Context, record LeadRecord) error
	// GetLead loads one lead by ID.
	GetLead(ctx context.Context, id string) (LeadRecord, error)
	// UpdateLeadIfStatus overwrites the lead only while its stored status
	// still equals expectedStatus. Returns ErrStatusChanged when a
	// concurrent transition won the race, ErrNotFound when the lead is
	// missing.
	UpdateLeadIfStatus(ctx context.Context, record LeadRecord, expectedStatus string) error
	// GetLeadByProjectAndVendor loads the lead addressed to vendorID on
	// projectID, if any.
	GetLeadByProjectAndVendor(ctx context.Context, projectID, vendorID string) (LeadRecord, error)
	// ListLeadsByPM pages leads issued by one PM, newest first.
	ListLeadsByPM(ctx context.Context, pmID string, pageSize int, pageToken string) (LeadPage, error)
	// ListLeadsByProject pages leads belonging to one project, newest first.
	ListLeadsByProject(ctx context.Context, projectID string, pageSize int, pageToken string) (LeadPage, error)
	// ListLeadsByVendor pages leads addressed to one vendor, newest first.
	ListLeadsByVendor(ctx context.Context, vendorID string, pageSize int, pageToken string) (LeadPage, error)
}

// ProjectRecord stores one project row. Vendor lists are append-only
// denormalizations of lead state.
type ProjectRecord struct {
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

// ProjectStore persists projects and their denormalized vendor lists.
type ProjectStore interface {
	// PutProject inserts a new project. Returns ErrConflict when the ID exists.
	PutProject(ctx context.Context, record ProjectRecord) error
	// GetProject loads one project by ID.
	GetProject(ctx context.Context, id string) (ProjectRecord, error)
	// AppendInvitedVendor adds vendorID to the project's invited list.
	// Appending an already-present vendor is a no-op.
	AppendInvitedVendor(ctx context.Context, projectID, vendorID string) error
	// AppendApprovedVendor adds vendorID to the project's approved list.
	// Appending an already-present vendor is a no-op.
	AppendApprovedVendor(ctx context.Context, projectID, vendorID string) error
	// SetProjectWorkspaceID records the workspace provisioned for the project.
	SetProjectWorkspaceID(ctx context.Context, projectID, workspaceID string) error
}

// WorkspaceRecord stores one workspace row with its access control block.
type WorkspaceRecord struct {
	ID                string
	ProjectID         string
	Owner             string
	CollaboratorsJSON string
	PermissionsJSON   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// WorkspaceStore persists workspaces keyed uniquely by project.
type WorkspaceStore interface {
	// CreateWorkspaceIfAbsent inserts the workspace unless one already
	// exists for its project. It returns the stored record and whether
	// the insert happened; on conflict the existing record is returned.
	CreateWorkspaceIfAbsent(ctx context.Context, record WorkspaceRecord) (WorkspaceRecord, bool, error)
	// GetWorkspace loads one workspace by ID.
	GetWorkspace(ctx context.Context, id string) (WorkspaceRecord, error)
	// GetWorkspaceByProject loads the workspace provisioned for projectID.
	GetWorkspaceByProject(ctx context.Context, projectID string) (WorkspaceRecord, error)
	// UpdateWorkspaceIf overwrites a stored workspace only while its
	// updated_at still equals expectedUpdatedAt. A lost conditional
	// write is reported as ErrConcurrentUpdate so the caller can re-read
	// and retry the merge.
	UpdateWorkspaceIf(ctx context.Context, record WorkspaceRecord, expectedUpdatedAt time.Time) error
}

// DirectoryRecord stores one vendor or PM directory row.
type DirectoryRecord struct {
	Kind           string
	ID             string
	Name           string
	Email          string
	Company        string
	Specialization string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DirectoryPage stores a paged directory listing result.
type DirectoryPage struct {
	Entries       []DirectoryRecord
	NextPageToken string
}

// VendorFilter is a translated directory filter: a SQL WHERE fragment with
// positional parameters. An empty clause matches everything.
type VendorFilter struct {
	Clause string
	Params []any
}

// DirectoryStore persists the vendor/PM directory.
type DirectoryStore interface {
	// PutEntry upserts one directory row.
	PutEntry(ctx context.Context, record DirectoryRecord) error
	// GetEntry loads one directory row by kind and ID.
	GetEntry(ctx context.Context, kind, id string) (DirectoryRecord, error)
	// ListVendors pages vendor rows matching the filter, by name.
	ListVendors(ctx context.Context, filter VendorFilter, pageSize int, pageToken string) (DirectoryPage, error)
}
