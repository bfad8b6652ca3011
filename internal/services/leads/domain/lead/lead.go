// Package lead owns the lead invitation entity and its lifecycle rules.
package lead

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/platform/id"
)

var (
	// ErrEmptyProjectID indicates a missing project ID.
	ErrEmptyProjectID = apperrors.New(apperrors.CodeLeadEmptyProjectID, "project id is required")
	// ErrEmptyPmID indicates a missing project manager ID.
	ErrEmptyPmID = apperrors.New(apperrors.CodeLeadEmptyPmID, "pm id is required")
	// ErrEmptyVendorID indicates a missing vendor ID.
	ErrEmptyVendorID = apperrors.New(apperrors.CodeLeadEmptyVendorID, "vendor id is required")
	// ErrEmptyTitle indicates missing lead details.
	ErrEmptyTitle = apperrors.New(apperrors.CodeLeadTitleEmpty, "lead title is required")
	// ErrEmptyDescription indicates missing lead details.
	ErrEmptyDescription = apperrors.New(apperrors.CodeLeadDescriptionEmpty, "lead description is required")
	// ErrEmptyMessage indicates a vendor response without a message.
	ErrEmptyMessage = apperrors.New(apperrors.CodeLeadResponseEmptyMsg, "response message is required")
)

// Status represents the lifecycle status of a lead invitation.
type Status int

const (
	// StatusUnspecified represents an invalid lead status.
	StatusUnspecified Status = iota
	// StatusSent indicates the lead awaits a vendor response.
	StatusSent
	// StatusVendorAccepted indicates the vendor accepted and awaits a PM decision.
	StatusVendorAccepted
	// StatusVendorDeclined indicates the vendor declined. Terminal.
	StatusVendorDeclined
	// StatusPmApproved indicates the PM approved the accepted vendor. Terminal.
	StatusPmApproved
	// StatusPmRejected indicates the PM rejected the accepted vendor. Terminal.
	StatusPmRejected
)

// Terminal reports whether no further transitions are allowed from status.
func Terminal(status Status) bool {
	switch status {
	case StatusVendorDeclined, StatusPmApproved, StatusPmRejected:
		return true
	default:
		return false
	}
}

// Details carries the PM-authored description of the work being offered.
type Details struct {
	Title           string
	Description     string
	Specialization  string
	EstimatedBudget string
	Timeline        string
	Priority        string
	Tags            []string
}

// VendorSnapshot is directory data copied onto the lead at send time.
// It is a one-way copy: later directory edits never alter historical leads.
type VendorSnapshot struct {
	Name    string
	Email   string
	Company string
}

// ProjectSnapshot is project data copied onto the lead at send time.
// Like VendorSnapshot it is never synchronized after creation.
type ProjectSnapshot struct {
	Name        string
	Description string
}

// VendorResponse records the vendor's answer to a lead. It is written once
// on the sent transition and may only be amended while the lead is still
// vendor_accepted.
type VendorResponse struct {
	Accepted         bool
	Message          string
	ProposedBudget   string
	ProposedTimeline string
	Attachments      []string
	RespondedAt      time.Time
}

// PmDecision records the PM's verdict on an accepted lead. Written once.
type PmDecision struct {
	Approved        bool
	Feedback        string
	WorkspaceAccess bool
	DecidedAt       time.Time
}

// Lead is a single PM-to-vendor invitation tracked by the state machine.
type Lead struct {
	ID              string
	ProjectID       string
	PmID            string
	VendorID        string
	WorkspaceID     string
	Status          Status
	Details         Details
	VendorSnapshot  VendorSnapshot
	ProjectSnapshot ProjectSnapshot
	VendorResponse  *VendorResponse
	PmDecision      *PmDecision
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateLeadInput describes the metadata needed to create a lead.
type CreateLeadInput struct {
	ProjectID       string
	PmID            string
	VendorID        string
	Details         Details
	VendorSnapshot  VendorSnapshot
	ProjectSnapshot ProjectSnapshot
}

// CreateLead creates a new lead in the sent state with a generated ID and timestamps.
func CreateLead(input CreateLeadInput, now func() time.Time, idGenerator func() (string, error)) (Lead, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateLeadInput(input)
	if err != nil {
		return Lead{}, err
	}

	leadID, err := idGenerator()
	if err != nil {
		return Lead{}, fmt.Errorf("generate lead id: %w", err)
	}

	createdAt := now().UTC()
	return Lead{
		ID:              leadID,
		ProjectID:       normalized.ProjectID,
		PmID:            normalized.PmID,
		VendorID:        normalized.VendorID,
		Status:          StatusSent,
		Details:         normalized.Details,
		VendorSnapshot:  normalized.VendorSnapshot,
		ProjectSnapshot: normalized.ProjectSnapshot,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// NormalizeCreateLeadInput trims and validates lead input metadata.
func NormalizeCreateLeadInput(input CreateLeadInput) (CreateLeadInput, error) {
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	if input.ProjectID == "" {
		return CreateLeadInput{}, ErrEmptyProjectID
	}
	input.PmID = strings.TrimSpace(input.PmID)
	if input.PmID == "" {
		return CreateLeadInput{}, ErrEmptyPmID
	}
	input.VendorID = strings.TrimSpace(input.VendorID)
	if input.VendorID == "" {
		return CreateLeadInput{}, ErrEmptyVendorID
	}
	input.Details.Title = strings.TrimSpace(input.Details.Title)
	if input.Details.Title == "" {
		return CreateLeadInput{}, ErrEmptyTitle
	}
	input.Details.Description = strings.TrimSpace(input.Details.Description)
	if input.Details.Description == "" {
		return CreateLeadInput{}, ErrEmptyDescription
	}
	return input, nil
}

// StatusLabel returns the string label for a lead status.
func StatusLabel(status Status) string {
	switch status {
	case StatusSent:
		return "SENT"
	case StatusVendorAccepted:
		return "VENDOR_ACCEPTED"
	case StatusVendorDeclined:
		return "VENDOR_DECLINED"
	case StatusPmApproved:
		return "PM_APPROVED"
	case StatusPmRejected:
		return "PM_REJECTED"
	default:
		return "UNSPECIFIED"
	}
}

// StatusFromLabel converts a status label to a Status value.
func StatusFromLabel(label string) Status {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "SENT":
		return StatusSent
	case "VENDOR_ACCEPTED":
		return StatusVendorAccepted
	case "VENDOR_DECLINED":
		return StatusVendorDeclined
	case "PM_APPROVED":
		return StatusPmApproved
	case "PM_REJECTED":
		return StatusPmRejected
	default:
		return StatusUnspecified
	}
}
