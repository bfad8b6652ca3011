package app

import (
	"context"
	"encoding/json"
	"testing"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/services/leads/domain/lead"
	"github.com/craftlane/craftlane/internal/services/leads/storage"
	"github.com/craftlane/craftlane/internal/services/notify"
)

// sendOneLead drives a PM send for a single vendor and returns the lead.
func sendOneLead(t *testing.T, env *testEnv, projectID, pmID, vendorID string) lead.Lead {
	t.Helper()
	result, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     pmActor(pmID),
		ProjectID: projectID,
		VendorIDs: []string{vendorID},
		Details:   testDetails(),
	})
	if err != nil {
		t.Fatalf("SendLeads: %v", err)
	}
	if len(result.Leads) != 1 {
		t.Fatalf("created %d leads, want 1", len(result.Leads))
	}
	return result.Leads[0]
}

func TestRespondToLeadAcceptNotifiesPM(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	sent := sendOneLead(t, env, "proj-1", "pm-1", "vendor-1")

	responded, err := env.service.RespondToLead(context.Background(), RespondToLeadInput{
		Actor:            vendorActor("vendor-1"),
		LeadID:           sent.ID,
		Accepted:         true,
		Message:          "Happy to take this on",
		ProposedBudget:   "24000",
		ProposedTimeline: "7 weeks",
	})
	if err != nil {
		t.Fatalf("RespondToLead: %v", err)
	}
	if responded.Status != lead.StatusVendorAccepted {
		t.Errorf("status = %v, want vendor_accepted", responded.Status)
	}
	if responded.VendorResponse == nil || responded.VendorResponse.ProposedBudget != "24000" {
		t.Errorf("response = %+v", responded.VendorResponse)
	}

	events := env.dispatcher.eventsFor("pm-1")
	if len(events) != 1 || events[0].Type != notify.EventLeadResponse {
		t.Fatalf("pm events = %v, want one lead_response", events)
	}
	var payload struct {
		Accepted bool `json:"accepted"`
	}
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !payload.Accepted {
		t.Errorf("payload = %+v, want accepted", payload)
	}
}

func TestRespondToLeadDeclineIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	sent := sendOneLead(t, env, "proj-1", "pm-1", "vendor-1")

	declined, err := env.service.RespondToLead(context.Background(), RespondToLeadInput{
		Actor:    vendorActor("vendor-1"),
		LeadID:   sent.ID,
		Accepted: false,
		Message:  "Fully booked this quarter",
	})
	if err != nil {
		t.Fatalf("RespondToLead: %v", err)
	}
	if declined.Status != lead.StatusVendorDeclined {
		t.Fatalf("status = %v, want vendor_declined", declined.Status)
	}

	_, err = env.service.DecideOnLead(context.Background(), DecideOnLeadInput{
		Actor:    pmActor("pm-1"),
		LeadID:   sent.ID,
		Approved: true,
	})
	if !apperrors.IsCode(err, apperrors.CodeLeadStatusDisallowsOp) {
		t.Errorf("decide on declined lead err = %v, want status disallows op", err)
	}
}

func TestRespondToLeadOnlyAddressedVendor(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	sent := sendOneLead(t, env, "proj-1", "pm-1", "vendor-1")

	input := RespondToLeadInput{
		LeadID:   sent.ID,
		Accepted: true,
		Message:  "hello",
	}
	input.Actor = vendorActor("vendor-2")
	if _, err := env.service.RespondToLead(context.Background(), input); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Errorf("other vendor err = %v, want forbidden", err)
	}
	input.Actor = pmActor("pm-1")
	if _, err := env.service.RespondToLead(context.Background(), input); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Errorf("pm err = %v, want forbidden", err)
	}
}

func TestRespondToLeadRequiresMessage(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	sent := sendOneLead(t, env, "proj-1", "pm-1", "vendor-1")

	_, err := env.service.RespondToLead(context.Background(), RespondToLeadInput{
		Actor:    vendorActor("vendor-1"),
		LeadID:   sent.ID,
		Accepted: true,
		Message:  "   ",
	})
	if !apperrors.IsCode(err, apperrors.CodeLeadResponseEmptyMsg) {
		t.Fatalf("err = %v, want empty-message code", err)
	}
}

func TestRespondToLeadLostRace(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	sent := sendOneLead(t, env, "proj-1", "pm-1", "vendor-1")

	env.leads.updateErr = storage.ErrStatusChanged
	_, err := env.service.RespondToLead(context.Background(), RespondToLeadInput{
		Actor:    vendorActor("vendor-1"),
		LeadID:   sent.ID,
		Accepted: true,
		Message:  "hello",
	})
	if !apperrors.IsCode(err, apperrors.CodeLeadStatusChanged) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeLeadStatusChanged)
	}
}

func TestUpdateLeadResponsePatchesProposal(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	sent := sendOneLead(t, env, "proj-1", "pm-1", "vendor-1")

	if _, err := env.service.RespondToLead(context.Background(), RespondToLeadInput{
		Actor:          vendorActor("vendor-1"),
		LeadID:         sent.ID,
		Accepted:       true,
		Message:        "Happy to take this on",
		ProposedBudget: "24000",
	}); err != nil {
		t.Fatalf("RespondToLead: %v", err)
	}

	budget := "22000"
	updated, err := env.service.UpdateLeadResponse(context.Background(), UpdateLeadResponseInput{
		Actor:          vendorActor("vendor-1"),
		LeadID:         sent.ID,
		ProposedBudget: &budget,
	})
	if err != nil {
		t.Fatalf("UpdateLeadResponse: %v", err)
	}
	if updated.VendorResponse.ProposedBudget != "22000" {
		t.Errorf("budget = %q, want 22000", updated.VendorResponse.ProposedBudget)
	}
	if updated.VendorResponse.Message != "Happy to take this on" {
		t.Errorf("message changed: %q", updated.VendorResponse.Message)
	}
	if !updated.VendorResponse.Accepted || updated.Status != lead.StatusVendorAccepted {
		t.Errorf("verdict changed: accepted=%v status=%v", updated.VendorResponse.Accepted, updated.Status)
	}

	// Amendments persist without a second notification; the PM only
	// hears about the original response.
	events := env.dispatcher.eventsFor("pm-1")
	if len(events) != 1 {
		t.Fatalf("pm got %d events, want 1", len(events))
	}
	if events[0].Type != notify.EventLeadResponse {
		t.Errorf("event type = %q, want %q", events[0].Type, notify.EventLeadResponse)
	}
}

func TestUpdateLeadResponseRequiresAcceptedLead(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	sent := sendOneLead(t, env, "proj-1", "pm-1", "vendor-1")

	message := "amended"
	_, err := env.service.UpdateLeadResponse(context.Background(), UpdateLeadResponseInput{
		Actor:   vendorActor("vendor-1"),
		LeadID:  sent.ID,
		Message: &message,
	})
	if !apperrors.IsCode(err, apperrors.CodeLeadStatusDisallowsOp) {
		t.Fatalf("err = %v, want status disallows op", err)
	}
}
