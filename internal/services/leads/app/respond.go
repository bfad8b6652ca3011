package app

import (
	"context"
	"encoding/json"
	"log"

	"github.com/craftlane/craftlane/internal/services/leads/domain/lead"
	"github.com/craftlane/craftlane/internal/services/leads/domain/policy"
	"github.com/craftlane/craftlane/internal/services/notify"
)

// RespondToLeadInput carries a vendor's answer to a sent lead.
type RespondToLeadInput struct {
	Actor            policy.Actor
	LeadID           string
	Accepted         bool
	Message          string
	ProposedBudget   string
	ProposedTimeline string
	Attachments      []string
}

// UpdateLeadResponseInput carries amendments to a recorded response. Nil
// fields stay untouched; the accept/decline verdict can never change.
type UpdateLeadResponseInput struct {
	Actor            policy.Actor
	LeadID           string
	Message          *string
	ProposedBudget   *string
	ProposedTimeline *string
	Attachments      []string
}

type leadResponseEventPayload struct {
	LeadID    string `json:"lead_id"`
	ProjectID string `json:"project_id"`
	VendorID  string `json:"vendor_id"`
	Accepted  bool   `json:"accepted"`
}

// RespondToLead records the vendor's accept or decline on a sent lead and
// notifies the PM. The response itself is immutable once written; only an
// accepted lead can later amend its proposal fields.
func (s *Service) RespondToLead(ctx context.Context, input RespondToLeadInput) (lead.Lead, error) {
	ctx, span := s.startSpan(ctx, "leads.RespondToLead")
	defer span.End()

	current, err := s.loadLead(ctx, input.LeadID)
	if err != nil {
		return lead.Lead{}, err
	}
	if err := policy.Authorize(input.Actor, policy.LeadResource(current), policy.ActionRespond); err != nil {
		return lead.Lead{}, err
	}

	next, err := lead.ApplyVendorResponse(current, lead.RespondInput{
		Accepted:         input.Accepted,
		Message:          input.Message,
		ProposedBudget:   input.ProposedBudget,
		ProposedTimeline: input.ProposedTimeline,
		Attachments:      input.Attachments,
	}, s.now)
	if err != nil {
		return lead.Lead{}, err
	}
	if err := s.storeLeadTransition(ctx, next, current.Status); err != nil {
		return lead.Lead{}, err
	}

	s.notifyLeadResponse(ctx, next)
	return next, nil
}

// UpdateLeadResponse amends the proposal fields of a vendor_accepted lead.
// Amendments persist quietly; only the original response notifies the PM.
func (s *Service) UpdateLeadResponse(ctx context.Context, input UpdateLeadResponseInput) (lead.Lead, error) {
	ctx, span := s.startSpan(ctx, "leads.UpdateLeadResponse")
	defer span.End()

	current, err := s.loadLead(ctx, input.LeadID)
	if err != nil {
		return lead.Lead{}, err
	}
	if err := policy.Authorize(input.Actor, policy.LeadResource(current), policy.ActionUpdateResponse); err != nil {
		return lead.Lead{}, err
	}

	next, err := lead.ApplyResponsePatch(current, lead.ResponsePatch{
		Message:          input.Message,
		ProposedBudget:   input.ProposedBudget,
		ProposedTimeline: input.ProposedTimeline,
		Attachments:      input.Attachments,
	}, s.now)
	if err != nil {
		return lead.Lead{}, err
	}
	if err := s.storeLeadTransition(ctx, next, current.Status); err != nil {
		return lead.Lead{}, err
	}
	return next, nil
}

func (s *Service) notifyLeadResponse(ctx context.Context, l lead.Lead) {
	if s.dispatcher == nil || l.VendorResponse == nil {
		return
	}
	payload, err := json.Marshal(leadResponseEventPayload{
		LeadID:    l.ID,
		ProjectID: l.ProjectID,
		VendorID:  l.VendorID,
		Accepted:  l.VendorResponse.Accepted,
	})
	if err != nil {
		log.Printf("leads: encode lead_response event lead=%q err=%v", l.ID, err)
		return
	}
	s.notifyActor(ctx, l.PmID, notify.Event{Type: notify.EventLeadResponse, Payload: payload})
}
