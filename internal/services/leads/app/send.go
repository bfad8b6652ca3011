package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/services/leads/domain/lead"
	"github.com/craftlane/craftlane/internal/services/leads/domain/policy"
	"github.com/craftlane/craftlane/internal/services/leads/storage"
	"github.com/craftlane/craftlane/internal/services/notify"
)

// SendLeadsInput describes one batch of lead invitations from a PM.
type SendLeadsInput struct {
	Actor     policy.Actor
	ProjectID string
	VendorIDs []string
	Details   lead.Details
}

// SendLeadsResult reports the created leads and the vendors skipped because
// they were already invited on the project.
type SendLeadsResult struct {
	Leads          []lead.Lead
	SkippedVendors []string
}

type newLeadEventPayload struct {
	LeadID      string `json:"lead_id"`
	ProjectID   string `json:"project_id"`
	ProjectName string `json:"project_name"`
	Title       string `json:"title"`
	PmID        string `json:"pm_id"`
}

// SendLeads creates one sent lead per vendor on a PM-owned project, copies
// directory and project snapshots onto each lead, and fans out new_lead
// notifications to the invited vendors. Vendors already invited on the
// project are skipped, which makes a retried send idempotent.
func (s *Service) SendLeads(ctx context.Context, input SendLeadsInput) (SendLeadsResult, error) {
	ctx, span := s.startSpan(ctx, "leads.SendLeads")
	defer span.End()

	projectRecord, err := s.stores.Projects.GetProject(ctx, strings.TrimSpace(input.ProjectID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SendLeadsResult{}, apperrors.WithMetadata(apperrors.CodeNotFound, "project not found",
				map[string]string{"Resource": "project", "ID": input.ProjectID})
		}
		return SendLeadsResult{}, apperrors.Wrap(apperrors.CodeInternal, "load project", err)
	}
	proj := projectFromRecord(projectRecord)

	if err := policy.Authorize(input.Actor, policy.ProjectResource(proj), policy.ActionSendLeads); err != nil {
		return SendLeadsResult{}, err
	}

	vendorIDs := dedupeVendorIDs(input.VendorIDs)
	if len(vendorIDs) == 0 {
		return SendLeadsResult{}, apperrors.New(apperrors.CodeLeadNoVendors, "at least one vendor is required")
	}
	// Validate details once up front so a bad batch fails before any lead
	// is written.
	if _, err := lead.NormalizeCreateLeadInput(lead.CreateLeadInput{
		ProjectID: proj.ID,
		PmID:      proj.PmID,
		VendorID:  vendorIDs[0],
		Details:   input.Details,
	}); err != nil {
		return SendLeadsResult{}, err
	}

	projectSnapshot := lead.ProjectSnapshot{Name: proj.Name, Description: proj.Description}

	var result SendLeadsResult
	for _, vendorID := range vendorIDs {
		if proj.HasInvitedVendor(vendorID) {
			result.SkippedVendors = append(result.SkippedVendors, vendorID)
			continue
		}

		entry := s.resolveVendorSnapshot(ctx, vendorID)
		created, err := lead.CreateLead(lead.CreateLeadInput{
			ProjectID: proj.ID,
			PmID:      proj.PmID,
			VendorID:  vendorID,
			Details:   input.Details,
			VendorSnapshot: lead.VendorSnapshot{
				Name:    entry.Name,
				Email:   entry.Email,
				Company: entry.Company,
			},
			ProjectSnapshot: projectSnapshot,
		}, s.now, s.newID)
		if err != nil {
			return result, err
		}

		record, err := leadToRecord(created)
		if err != nil {
			return result, apperrors.Wrap(apperrors.CodeInternal, "encode lead", err)
		}
		if err := s.stores.Leads.PutLead(ctx, record); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				// A lead for this pairing already exists; fold into the
				// skipped list rather than failing the batch.
				result.SkippedVendors = append(result.SkippedVendors, vendorID)
				continue
			}
			return result, apperrors.Wrap(apperrors.CodeInternal, "store lead", err)
		}
		if err := s.stores.Projects.AppendInvitedVendor(ctx, proj.ID, vendorID); err != nil {
			log.Printf("leads: append invited vendor failed project=%q vendor=%q err=%v", proj.ID, vendorID, err)
		}
		result.Leads = append(result.Leads, created)
	}

	s.fanOutNewLeadEvents(ctx, result.Leads)
	return result, nil
}

// fanOutNewLeadEvents notifies each invited vendor concurrently. Delivery
// failures are isolated per recipient inside the dispatcher.
func (s *Service) fanOutNewLeadEvents(ctx context.Context, leads []lead.Lead) {
	if s.dispatcher == nil || len(leads) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, created := range leads {
		payload, err := json.Marshal(newLeadEventPayload{
			LeadID:      created.ID,
			ProjectID:   created.ProjectID,
			ProjectName: created.ProjectSnapshot.Name,
			Title:       created.Details.Title,
			PmID:        created.PmID,
		})
		if err != nil {
			log.Printf("leads: encode new_lead event lead=%q err=%v", created.ID, err)
			continue
		}
		wg.Add(1)
		go func(vendorID string, payload json.RawMessage) {
			defer wg.Done()
			s.notifyActor(ctx, vendorID, notify.Event{Type: notify.EventNewLead, Payload: payload})
		}(created.VendorID, payload)
	}
	wg.Wait()
}

func dedupeVendorIDs(vendorIDs []string) []string {
	seen := make(map[string]struct{}, len(vendorIDs))
	deduped := make([]string, 0, len(vendorIDs))
	for _, vendorID := range vendorIDs {
		vendorID = strings.TrimSpace(vendorID)
		if vendorID == "" {
			continue
		}
		if _, ok := seen[vendorID]; ok {
			continue
		}
		seen[vendorID] = struct{}{}
		deduped = append(deduped, vendorID)
	}
	return deduped
}
