package app

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/craftlane/craftlane/internal/services/leads/domain/directory"
	"github.com/craftlane/craftlane/internal/services/leads/domain/lead"
	"github.com/craftlane/craftlane/internal/services/leads/domain/project"
	"github.com/craftlane/craftlane/internal/services/leads/domain/workspace"
	"github.com/craftlane/craftlane/internal/services/leads/storage"
)

// The storage layer keeps structured lead payloads as JSON columns. These
// adapters own the encoding so domain types never leak storage tags.

type leadDetailsJSON struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Specialization  string   `json:"specialization,omitempty"`
	EstimatedBudget string   `json:"estimated_budget,omitempty"`
	Timeline        string   `json:"timeline,omitempty"`
	Priority        string   `json:"priority,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

type vendorSnapshotJSON struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

type projectSnapshotJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type vendorResponseJSON struct {
	Accepted         bool     `json:"accepted"`
	Message          string   `json:"message"`
	ProposedBudget   string   `json:"proposed_budget,omitempty"`
	ProposedTimeline string   `json:"proposed_timeline,omitempty"`
	Attachments      []string `json:"attachments,omitempty"`
	RespondedAtMs    int64    `json:"responded_at_ms"`
}

type pmDecisionJSON struct {
	Approved        bool   `json:"approved"`
	Feedback        string `json:"feedback,omitempty"`
	WorkspaceAccess bool   `json:"workspace_access"`
	DecidedAtMs     int64  `json:"decided_at_ms"`
}

func leadToRecord(l lead.Lead) (storage.LeadRecord, error) {
	details, err := json.Marshal(leadDetailsJSON{
		Title:           l.Details.Title,
		Description:     l.Details.Description,
		Specialization:  l.Details.Specialization,
		EstimatedBudget: l.Details.EstimatedBudget,
		Timeline:        l.Details.Timeline,
		Priority:        l.Details.Priority,
		Tags:            l.Details.Tags,
	})
	if err != nil {
		return storage.LeadRecord{}, fmt.Errorf("encode lead details: %w", err)
	}
	vendorSnapshot, err := json.Marshal(vendorSnapshotJSON(l.VendorSnapshot))
	if err != nil {
		return storage.LeadRecord{}, fmt.Errorf("encode vendor snapshot: %w", err)
	}
	projectSnapshot, err := json.Marshal(projectSnapshotJSON(l.ProjectSnapshot))
	if err != nil {
		return storage.LeadRecord{}, fmt.Errorf("encode project snapshot: %w", err)
	}

	record := storage.LeadRecord{
		ID:                  l.ID,
		ProjectID:           l.ProjectID,
		PmID:                l.PmID,
		VendorID:            l.VendorID,
		WorkspaceID:         l.WorkspaceID,
		Status:              lead.StatusLabel(l.Status),
		DetailsJSON:         string(details),
		VendorSnapshotJSON:  string(vendorSnapshot),
		ProjectSnapshotJSON: string(projectSnapshot),
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}

	if l.VendorResponse != nil {
		response, err := json.Marshal(vendorResponseJSON{
			Accepted:         l.VendorResponse.Accepted,
			Message:          l.VendorResponse.Message,
			ProposedBudget:   l.VendorResponse.ProposedBudget,
			ProposedTimeline: l.VendorResponse.ProposedTimeline,
			Attachments:      l.VendorResponse.Attachments,
			RespondedAtMs:    l.VendorResponse.RespondedAt.UTC().UnixMilli(),
		})
		if err != nil {
			return storage.LeadRecord{}, fmt.Errorf("encode vendor response: %w", err)
		}
		record.VendorResponseJSON = string(response)
	}
	if l.PmDecision != nil {
		decision, err := json.Marshal(pmDecisionJSON{
			Approved:        l.PmDecision.Approved,
			Feedback:        l.PmDecision.Feedback,
			WorkspaceAccess: l.PmDecision.WorkspaceAccess,
			DecidedAtMs:     l.PmDecision.DecidedAt.UTC().UnixMilli(),
		})
		if err != nil {
			return storage.LeadRecord{}, fmt.Errorf("encode pm decision: %w", err)
		}
		record.PmDecisionJSON = string(decision)
	}
	return record, nil
}

func leadFromRecord(record storage.LeadRecord) (lead.Lead, error) {
	l := lead.Lead{
		ID:          record.ID,
		ProjectID:   record.ProjectID,
		PmID:        record.PmID,
		VendorID:    record.VendorID,
		WorkspaceID: record.WorkspaceID,
		Status:      lead.StatusFromLabel(record.Status),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}

	if record.DetailsJSON != "" {
		var details leadDetailsJSON
		if err := json.Unmarshal([]byte(record.DetailsJSON), &details); err != nil {
			return lead.Lead{}, fmt.Errorf("decode lead details: %w", err)
		}
		l.Details = lead.Details{
			Title:           details.Title,
			Description:     details.Description,
			Specialization:  details.Specialization,
			EstimatedBudget: details.EstimatedBudget,
			Timeline:        details.Timeline,
			Priority:        details.Priority,
			Tags:            details.Tags,
		}
	}
	if record.VendorSnapshotJSON != "" {
		var snapshot vendorSnapshotJSON
		if err := json.Unmarshal([]byte(record.VendorSnapshotJSON), &snapshot); err != nil {
			return lead.Lead{}, fmt.Errorf("decode vendor snapshot: %w", err)
		}
		l.VendorSnapshot = lead.VendorSnapshot(snapshot)
	}
	if record.ProjectSnapshotJSON != "" {
		var snapshot projectSnapshotJSON
		if err := json.Unmarshal([]byte(record.ProjectSnapshotJSON), &snapshot); err != nil {
			return lead.Lead{}, fmt.Errorf("decode project snapshot: %w", err)
		}
		l.ProjectSnapshot = lead.ProjectSnapshot(snapshot)
	}
	if record.VendorResponseJSON != "" {
		var response vendorResponseJSON
		if err := json.Unmarshal([]byte(record.VendorResponseJSON), &response); err != nil {
			return lead.Lead{}, fmt.Errorf("decode vendor response: %w", err)
		}
		l.VendorResponse = &lead.VendorResponse{
			Accepted:         response.Accepted,
			Message:          response.Message,
			ProposedBudget:   response.ProposedBudget,
			ProposedTimeline: response.ProposedTimeline,
			Attachments:      response.Attachments,
			RespondedAt:      fromMillis(response.RespondedAtMs),
		}
	}
	if record.PmDecisionJSON != "" {
		var decision pmDecisionJSON
		if err := json.Unmarshal([]byte(record.PmDecisionJSON), &decision); err != nil {
			return lead.Lead{}, fmt.Errorf("decode pm decision: %w", err)
		}
		l.PmDecision = &lead.PmDecision{
			Approved:        decision.Approved,
			Feedback:        decision.Feedback,
			WorkspaceAccess: decision.WorkspaceAccess,
			DecidedAt:       fromMillis(decision.DecidedAtMs),
		}
	}
	return l, nil
}

func projectFromRecord(record storage.ProjectRecord) project.Project {
	return project.Project{
		ID:              record.ID,
		PmID:            record.PmID,
		Name:            record.Name,
		Description:     record.Description,
		WorkspaceID:     record.WorkspaceID,
		InvitedVendors:  record.InvitedVendors,
		ApprovedVendors: record.ApprovedVendors,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

func projectToRecord(p project.Project) storage.ProjectRecord {
	return storage.ProjectRecord{
		ID:              p.ID,
		PmID:            p.PmID,
		Name:            p.Name,
		Description:     p.Description,
		WorkspaceID:     p.WorkspaceID,
		InvitedVendors:  p.InvitedVendors,
		ApprovedVendors: p.ApprovedVendors,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func workspaceToRecord(w workspace.Workspace) (storage.WorkspaceRecord, error) {
	collaborators, err := json.Marshal(w.Collaborators)
	if err != nil {
		return storage.WorkspaceRecord{}, fmt.Errorf("encode workspace collaborators: %w", err)
	}
	permissions, err := json.Marshal(w.Permissions)
	if err != nil {
		return storage.WorkspaceRecord{}, fmt.Errorf("encode workspace permissions: %w", err)
	}
	return storage.WorkspaceRecord{
		ID:                w.ID,
		ProjectID:         w.ProjectID,
		Owner:             w.Owner,
		CollaboratorsJSON: string(collaborators),
		PermissionsJSON:   string(permissions),
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
	}, nil
}

func workspaceFromRecord(record storage.WorkspaceRecord) (workspace.Workspace, error) {
	w := workspace.Workspace{
		ID:        record.ID,
		ProjectID: record.ProjectID,
		Owner:     record.Owner,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	if record.CollaboratorsJSON != "" {
		if err := json.Unmarshal([]byte(record.CollaboratorsJSON), &w.Collaborators); err != nil {
			return workspace.Workspace{}, fmt.Errorf("decode workspace collaborators: %w", err)
		}
	}
	if record.PermissionsJSON != "" {
		if err := json.Unmarshal([]byte(record.PermissionsJSON), &w.Permissions); err != nil {
			return workspace.Workspace{}, fmt.Errorf("decode workspace permissions: %w", err)
		}
	}
	return w, nil
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func entryFromRecord(record storage.DirectoryRecord) directory.Entry {
	return directory.Entry{
		Kind:           directory.Kind(record.Kind),
		ID:             record.ID,
		Name:           record.Name,
		Email:          record.Email,
		Company:        record.Company,
		Specialization: record.Specialization,
	}
}
