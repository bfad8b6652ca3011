package app

import (
	"context"
	"encoding/json"
	"testing"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/services/leads/domain/directory"
	"github.com/craftlane/craftlane/internal/services/leads/domain/lead"
	"github.com/craftlane/craftlane/internal/services/leads/storage"
	"github.com/craftlane/craftlane/internal/services/notify"
)

func testDetails() lead.Details {
	return lead.Details{
		Title:           "Kitchen remodel",
		Description:     "Full kitchen renovation including cabinets",
		Specialization:  "carpentry",
		EstimatedBudget: "25000",
		Timeline:        "8 weeks",
		Priority:        "high",
	}
}

func TestSendLeadsCreatesOneLeadPerVendor(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	env.seedVendor(t, "vendor-1", "Ada Builders", "ada@example.com", "Ada LLC")
	env.seedVendor(t, "vendor-2", "Byrd Electric", "byrd@example.com", "Byrd Inc")

	result, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     pmActor("pm-1"),
		ProjectID: "proj-1",
		VendorIDs: []string{"vendor-1", "vendor-2"},
		Details:   testDetails(),
	})
	if err != nil {
		t.Fatalf("SendLeads: %v", err)
	}
	if len(result.Leads) != 2 {
		t.Fatalf("created %d leads, want 2", len(result.Leads))
	}
	if len(result.SkippedVendors) != 0 {
		t.Fatalf("skipped %v, want none", result.SkippedVendors)
	}

	first := result.Leads[0]
	if first.Status != lead.StatusSent {
		t.Errorf("status = %v, want sent", first.Status)
	}
	if first.VendorSnapshot.Name != "Ada Builders" || first.VendorSnapshot.Company != "Ada LLC" {
		t.Errorf("vendor snapshot = %+v, want directory data", first.VendorSnapshot)
	}
	if first.ProjectSnapshot.Name != "Riverside House" {
		t.Errorf("project snapshot name = %q", first.ProjectSnapshot.Name)
	}

	record, err := env.projects.GetProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if len(record.InvitedVendors) != 2 {
		t.Errorf("invited vendors = %v, want both", record.InvitedVendors)
	}

	for _, vendorID := range []string{"vendor-1", "vendor-2"} {
		events := env.dispatcher.eventsFor(vendorID)
		if len(events) != 1 || events[0].Type != notify.EventNewLead {
			t.Fatalf("events for %s = %v, want one new_lead", vendorID, events)
		}
		var payload struct {
			LeadID      string `json:"lead_id"`
			ProjectName string `json:"project_name"`
			Title       string `json:"title"`
		}
		if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.ProjectName != "Riverside House" || payload.Title != "Kitchen remodel" {
			t.Errorf("payload = %+v", payload)
		}
	}
}

func TestSendLeadsSkipsAlreadyInvitedVendors(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	env.seedVendor(t, "vendor-1", "Ada Builders", "ada@example.com", "Ada LLC")
	env.seedVendor(t, "vendor-2", "Byrd Electric", "byrd@example.com", "Byrd Inc")

	if _, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     pmActor("pm-1"),
		ProjectID: "proj-1",
		VendorIDs: []string{"vendor-1"},
		Details:   testDetails(),
	}); err != nil {
		t.Fatalf("first SendLeads: %v", err)
	}

	result, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     pmActor("pm-1"),
		ProjectID: "proj-1",
		VendorIDs: []string{"vendor-1", "vendor-2"},
		Details:   testDetails(),
	})
	if err != nil {
		t.Fatalf("second SendLeads: %v", err)
	}
	if len(result.Leads) != 1 || result.Leads[0].VendorID != "vendor-2" {
		t.Errorf("leads = %v, want only vendor-2", result.Leads)
	}
	if len(result.SkippedVendors) != 1 || result.SkippedVendors[0] != "vendor-1" {
		t.Errorf("skipped = %v, want [vendor-1]", result.SkippedVendors)
	}
	// vendor-1 only saw the event from the first send.
	if events := env.dispatcher.eventsFor("vendor-1"); len(events) != 1 {
		t.Errorf("vendor-1 got %d events, want 1", len(events))
	}
}

func TestSendLeadsDeduplicatesVendorIDs(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	env.seedVendor(t, "vendor-1", "Ada Builders", "ada@example.com", "Ada LLC")

	result, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     pmActor("pm-1"),
		ProjectID: "proj-1",
		VendorIDs: []string{" vendor-1", "vendor-1", ""},
		Details:   testDetails(),
	})
	if err != nil {
		t.Fatalf("SendLeads: %v", err)
	}
	if len(result.Leads) != 1 {
		t.Fatalf("created %d leads, want 1", len(result.Leads))
	}
}

func TestSendLeadsRequiresVendors(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")

	_, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     pmActor("pm-1"),
		ProjectID: "proj-1",
		VendorIDs: []string{"", "  "},
		Details:   testDetails(),
	})
	if !apperrors.IsCode(err, apperrors.CodeLeadNoVendors) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeLeadNoVendors)
	}
}

func TestSendLeadsRejectsNonOwners(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")

	if _, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     pmActor("pm-2"),
		ProjectID: "proj-1",
		VendorIDs: []string{"vendor-1"},
		Details:   testDetails(),
	}); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Errorf("foreign pm err = %v, want forbidden", err)
	}
	if _, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     vendorActor("vendor-1"),
		ProjectID: "proj-1",
		VendorIDs: []string{"vendor-1"},
		Details:   testDetails(),
	}); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Errorf("vendor actor err = %v, want forbidden", err)
	}
}

func TestSendLeadsUnknownProject(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     pmActor("pm-1"),
		ProjectID: "missing",
		VendorIDs: []string{"vendor-1"},
		Details:   testDetails(),
	})
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestSendLeadsSubstitutesUnknownSnapshotOnDirectoryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	env.directory.getErr = context.DeadlineExceeded

	result, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     pmActor("pm-1"),
		ProjectID: "proj-1",
		VendorIDs: []string{"vendor-1"},
		Details:   testDetails(),
	})
	if err != nil {
		t.Fatalf("SendLeads: %v", err)
	}
	if got := result.Leads[0].VendorSnapshot.Name; got != directory.UnknownName {
		t.Errorf("snapshot name = %q, want sentinel", got)
	}
}

func TestSendLeadsValidatesDetailsBeforeWriting(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	env.seedVendor(t, "vendor-1", "Ada Builders", "ada@example.com", "Ada LLC")

	details := testDetails()
	details.Title = "  "
	_, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     pmActor("pm-1"),
		ProjectID: "proj-1",
		VendorIDs: []string{"vendor-1"},
		Details:   details,
	})
	if !apperrors.IsCode(err, apperrors.CodeLeadTitleEmpty) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeLeadTitleEmpty)
	}
	if len(env.leads.leads) != 0 {
		t.Errorf("leads were written despite invalid details")
	}
	if events := env.dispatcher.eventsFor("vendor-1"); len(events) != 0 {
		t.Errorf("events were delivered despite invalid details")
	}
}

func TestSendLeadsFoldsPairingConflictIntoSkipped(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	env.seedVendor(t, "vendor-1", "Ada Builders", "ada@example.com", "Ada LLC")

	// A lead for the pairing already exists even though the project's
	// invited list does not mention the vendor yet.
	if err := env.leads.PutLead(context.Background(), storage.LeadRecord{
		ID:        "lead-existing",
		ProjectID: "proj-1",
		PmID:      "pm-1",
		VendorID:  "vendor-1",
		Status:    "SENT",
	}); err != nil {
		t.Fatalf("seed lead: %v", err)
	}

	result, err := env.service.SendLeads(context.Background(), SendLeadsInput{
		Actor:     pmActor("pm-1"),
		ProjectID: "proj-1",
		VendorIDs: []string{"vendor-1"},
		Details:   testDetails(),
	})
	if err != nil {
		t.Fatalf("SendLeads: %v", err)
	}
	if len(result.SkippedVendors) != 1 || result.SkippedVendors[0] != "vendor-1" {
		t.Errorf("skipped = %v, want [vendor-1]", result.SkippedVendors)
	}
}
