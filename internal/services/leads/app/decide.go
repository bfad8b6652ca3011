package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/craftlane/craftlane/internal/services/leads/domain/lead"
	"github.com/craftlane/craftlane/internal/services/leads/domain/policy"
	"github.com/craftlane/craftlane/internal/services/leads/domain/workspace"
	"github.com/craftlane/craftlane/internal/services/notify"
)

// DecideOnLeadInput carries the PM verdict on an accepted lead.
type DecideOnLeadInput struct {
	Actor           policy.Actor
	LeadID          string
	Approved        bool
	Feedback        string
	WorkspaceAccess bool
}

// DecideOnLeadResult reports the decided lead, the workspace when access
// was granted, and warnings for follow-up steps that failed after the
// decision committed.
type DecideOnLeadResult struct {
	Lead      lead.Lead
	Workspace *workspace.Workspace
	Warnings  []string
}

type pmDecisionEventPayload struct {
	LeadID    string `json:"lead_id"`
	ProjectID string `json:"project_id"`
	Approved  bool   `json:"approved"`
	Feedback  string `json:"feedback,omitempty"`
}

type workspaceAccessEventPayload struct {
	LeadID      string `json:"lead_id"`
	WorkspaceID string `json:"workspace_id"`
	Link        string `json:"link"`
}

// DecideOnLead records the PM's approve or reject verdict on a
// vendor_accepted lead. Approval appends the vendor to the project's
// approved list; with workspace access requested it also provisions the
// shared workspace and pushes an access link to the vendor. Follow-up
// failures after the decision is stored never roll the decision back; they
// surface as warnings.
func (s *Service) DecideOnLead(ctx context.Context, input DecideOnLeadInput) (DecideOnLeadResult, error) {
	ctx, span := s.startSpan(ctx, "leads.DecideOnLead")
	defer span.End()

	current, err := s.loadLead(ctx, input.LeadID)
	if err != nil {
		return DecideOnLeadResult{}, err
	}
	if err := policy.Authorize(input.Actor, policy.LeadResource(current), policy.ActionDecide); err != nil {
		return DecideOnLeadResult{}, err
	}

	next, err := lead.ApplyDecision(current, lead.DecideInput{
		Approved:        input.Approved,
		Feedback:        input.Feedback,
		WorkspaceAccess: input.WorkspaceAccess,
	}, s.now)
	if err != nil {
		return DecideOnLeadResult{}, err
	}
	if err := s.storeLeadTransition(ctx, next, current.Status); err != nil {
		return DecideOnLeadResult{}, err
	}

	result := DecideOnLeadResult{Lead: next}
	if next.PmDecision.Approved {
		if err := s.stores.Projects.AppendApprovedVendor(ctx, next.ProjectID, next.VendorID); err != nil {
			log.Printf("leads: append approved vendor failed project=%q vendor=%q err=%v", next.ProjectID, next.VendorID, err)
			result.Warnings = append(result.Warnings, "vendor approval was recorded but the project vendor list was not updated")
		}
	}
	if next.PmDecision.WorkspaceAccess {
		s.grantWorkspaceAccess(ctx, &result)
	}

	s.notifyPmDecision(ctx, result.Lead)
	return result, nil
}

// grantWorkspaceAccess provisions the workspace for an approved lead and
// pushes the access link. Provisioning failure leaves the approval intact
// and downgrades to a warning.
func (s *Service) grantWorkspaceAccess(ctx context.Context, result *DecideOnLeadResult) {
	decided := result.Lead
	provisioned, err := s.provisionWorkspace(ctx, decided.ProjectID, decided.PmID, decided.VendorID)
	if err != nil {
		log.Printf("leads: workspace provisioning failed lead=%q project=%q err=%v", decided.ID, decided.ProjectID, err)
		result.Warnings = append(result.Warnings, "lead was approved but workspace provisioning failed; retry the decision to provision access")
		return
	}
	result.Workspace = &provisioned

	if err := s.stores.Projects.SetProjectWorkspaceID(ctx, decided.ProjectID, provisioned.ID); err != nil {
		log.Printf("leads: store project workspace id failed project=%q workspace=%q err=%v", decided.ProjectID, provisioned.ID, err)
		result.Warnings = append(result.Warnings, "workspace was provisioned but could not be linked to the project")
	}

	// Record the workspace on the lead row. The lead already sits in its
	// terminal status, so the conditional write keys on that status.
	withWorkspace := decided
	withWorkspace.WorkspaceID = provisioned.ID
	withWorkspace.UpdatedAt = s.now().UTC()
	if err := s.storeLeadTransition(ctx, withWorkspace, decided.Status); err != nil {
		log.Printf("leads: store lead workspace id failed lead=%q workspace=%q err=%v", decided.ID, provisioned.ID, err)
		result.Warnings = append(result.Warnings, "workspace was provisioned but could not be linked to the lead")
	} else {
		result.Lead = withWorkspace
	}

	s.notifyWorkspaceAccess(ctx, result.Lead, provisioned)
}

func (s *Service) notifyPmDecision(ctx context.Context, l lead.Lead) {
	if s.dispatcher == nil || l.PmDecision == nil {
		return
	}
	payload, err := json.Marshal(pmDecisionEventPayload{
		LeadID:    l.ID,
		ProjectID: l.ProjectID,
		Approved:  l.PmDecision.Approved,
		Feedback:  l.PmDecision.Feedback,
	})
	if err != nil {
		log.Printf("leads: encode pm_decision event lead=%q err=%v", l.ID, err)
		return
	}
	s.notifyActor(ctx, l.VendorID, notify.Event{Type: notify.EventPmDecision, Payload: payload})
}

func (s *Service) notifyWorkspaceAccess(ctx context.Context, l lead.Lead, provisioned workspace.Workspace) {
	if s.dispatcher == nil {
		return
	}
	link := fmt.Sprintf("/workspaces/%s", provisioned.ID)
	if len(s.grants.PrivateKey) > 0 {
		grant, err := workspace.SignGrant(provisioned.ID, l.VendorID, l.ID, s.grants)
		if err != nil {
			log.Printf("leads: sign workspace grant failed lead=%q workspace=%q err=%v", l.ID, provisioned.ID, err)
		} else {
			link = fmt.Sprintf("/workspaces/%s?grant=%s", provisioned.ID, grant)
		}
	}
	payload, err := json.Marshal(workspaceAccessEventPayload{
		LeadID:      l.ID,
		WorkspaceID: provisioned.ID,
		Link:        link,
	})
	if err != nil {
		log.Printf("leads: encode workspace_access event lead=%q err=%v", l.ID, err)
		return
	}
	s.notifyActor(ctx, l.VendorID, notify.Event{Type: notify.EventWorkspaceAccess, Payload: payload})
}

// AccessWorkspaceInput identifies one workspace entry attempt, either by
// actor relationship or by a signed access grant.
type AccessWorkspaceInput struct {
	Actor       policy.Actor
	WorkspaceID string
	Grant       string
}

// AccessWorkspace checks whether the actor may enter the workspace. A
// supplied grant is validated against the workspace and actor identity;
// without one the policy evaluator decides from the collaborator lists.
func (s *Service) AccessWorkspace(ctx context.Context, input AccessWorkspaceInput) (workspace.Workspace, error) {
	ctx, span := s.startSpan(ctx, "leads.AccessWorkspace")
	defer span.End()

	record, err := s.stores.Workspaces.GetWorkspace(ctx, input.WorkspaceID)
	if err != nil {
		return workspace.Workspace{}, s.mapWorkspaceLoadError(err, input.WorkspaceID)
	}
	target, err := workspaceFromRecord(record)
	if err != nil {
		return workspace.Workspace{}, err
	}

	if input.Grant != "" {
		_, err := workspace.ValidateGrant(input.Grant, workspace.GrantExpectation{
			WorkspaceID: target.ID,
			VendorID:    input.Actor.ID,
		}, s.grants)
		if err != nil {
			return workspace.Workspace{}, err
		}
		return target, nil
	}

	if err := policy.Authorize(input.Actor, policy.WorkspaceResource(target), policy.ActionAccessWorkspace); err != nil {
		return workspace.Workspace{}, err
	}
	return target, nil
}
