package app

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/services/leads/domain/directory"
	"github.com/craftlane/craftlane/internal/services/leads/domain/lead"
	"github.com/craftlane/craftlane/internal/services/leads/domain/policy"
	"github.com/craftlane/craftlane/internal/services/leads/filter"
	"github.com/craftlane/craftlane/internal/services/leads/storage"
)

// LeadPage is one page of a lead listing.
type LeadPage struct {
	Leads         []lead.Lead
	NextPageToken string
}

// VendorPage is one page of a vendor directory listing.
type VendorPage struct {
	Vendors       []directory.Entry
	NextPageToken string
}

// LeadsForPM pages the leads the PM issued, newest first.
func (s *Service) LeadsForPM(ctx context.Context, actor policy.Actor, pmID string, pageSize int, pageToken string) (LeadPage, error) {
	ctx, span := s.startSpan(ctx, "leads.LeadsForPM")
	defer span.End()

	pmID = strings.TrimSpace(pmID)
	if actor.Role != policy.RolePM || actor.ID != pmID {
		return LeadPage{}, apperrors.New(apperrors.CodeForbidden, "pm lead listings are restricted to the owning pm")
	}
	return s.listLeads(ctx, pageSize, pageToken, func(ctx context.Context, size int, cursor string) (storage.LeadPage, error) {
		return s.stores.Leads.ListLeadsByPM(ctx, pmID, size, cursor)
	})
}

// LeadsForProject pages the leads on one project, newest first. The
// project owner and any invited vendor may read the listing.
func (s *Service) LeadsForProject(ctx context.Context, actor policy.Actor, projectID string, pageSize int, pageToken string) (LeadPage, error) {
	ctx, span := s.startSpan(ctx, "leads.LeadsForProject")
	defer span.End()

	record, err := s.stores.Projects.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return LeadPage{}, apperrors.WithMetadata(apperrors.CodeNotFound, "project not found",
				map[string]string{"Resource": "project", "ID": projectID})
		}
		return LeadPage{}, apperrors.Wrap(apperrors.CodeInternal, "load project", err)
	}
	proj := projectFromRecord(record)

	resource := policy.ProjectResource(proj)
	resource.Collaborators = proj.InvitedVendors
	if err := policy.Authorize(actor, resource, policy.ActionView); err != nil {
		return LeadPage{}, err
	}
	return s.listLeads(ctx, pageSize, pageToken, func(ctx context.Context, size int, cursor string) (storage.LeadPage, error) {
		return s.stores.Leads.ListLeadsByProject(ctx, proj.ID, size, cursor)
	})
}

// LeadsForVendor pages the leads addressed to the vendor, newest first.
func (s *Service) LeadsForVendor(ctx context.Context, actor policy.Actor, vendorID string, pageSize int, pageToken string) (LeadPage, error) {
	ctx, span := s.startSpan(ctx, "leads.LeadsForVendor")
	defer span.End()

	vendorID = strings.TrimSpace(vendorID)
	if actor.Role != policy.RoleVendor || actor.ID != vendorID {
		return LeadPage{}, apperrors.New(apperrors.CodeForbidden, "vendor lead listings are restricted to the addressed vendor")
	}
	return s.listLeads(ctx, pageSize, pageToken, func(ctx context.Context, size int, cursor string) (storage.LeadPage, error) {
		return s.stores.Leads.ListLeadsByVendor(ctx, vendorID, size, cursor)
	})
}

func (s *Service) listLeads(ctx context.Context, pageSize int, pageToken string, list func(context.Context, int, string) (storage.LeadPage, error)) (LeadPage, error) {
	cursor, err := decodePageToken(pageToken)
	if err != nil {
		return LeadPage{}, err
	}

	stored, err := list(ctx, clampPageSize(pageSize), cursor)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return LeadPage{}, apperrors.New(apperrors.CodeInvalidPageToken, "page token refers to an unknown lead")
		}
		return LeadPage{}, apperrors.Wrap(apperrors.CodeInternal, "list leads", err)
	}

	page := LeadPage{NextPageToken: encodePageToken(stored.NextPageToken)}
	for _, record := range stored.Leads {
		decoded, err := leadFromRecord(record)
		if err != nil {
			return LeadPage{}, err
		}
		page.Leads = append(page.Leads, decoded)
	}
	return page, nil
}

// VendorDirectory pages the vendor directory, optionally narrowed by an
// AIP-160 filter expression over name, email, company and specialization.
func (s *Service) VendorDirectory(ctx context.Context, filterExpr string, pageSize int, pageToken string) (VendorPage, error) {
	ctx, span := s.startSpan(ctx, "leads.VendorDirectory")
	defer span.End()

	condition, err := filter.ParseVendorFilter(filterExpr)
	if err != nil {
		return VendorPage{}, apperrors.Wrap(apperrors.CodeDirectoryInvalidFilter, "invalid vendor filter", err)
	}
	cursor, err := decodePageToken(pageToken)
	if err != nil {
		return VendorPage{}, err
	}

	stored, err := s.stores.Directory.ListVendors(ctx, storage.VendorFilter{
		Clause: condition.Clause,
		Params: condition.Params,
	}, clampPageSize(pageSize), cursor)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return VendorPage{}, apperrors.New(apperrors.CodeInvalidPageToken, "page token refers to an unknown vendor")
		}
		return VendorPage{}, apperrors.Wrap(apperrors.CodeDependencyUnavailable, "list vendors", err)
	}

	page := VendorPage{NextPageToken: encodePageToken(stored.NextPageToken)}
	for _, record := range stored.Entries {
		page.Vendors = append(page.Vendors, entryFromRecord(record))
	}
	return page, nil
}

// GetLead loads one lead for an actor allowed to view it.
func (s *Service) GetLead(ctx context.Context, actor policy.Actor, leadID string) (lead.Lead, error) {
	ctx, span := s.startSpan(ctx, "leads.GetLead")
	defer span.End()

	current, err := s.loadLead(ctx, leadID)
	if err != nil {
		return lead.Lead{}, err
	}
	if err := policy.Authorize(actor, policy.LeadResource(current), policy.ActionView); err != nil {
		return lead.Lead{}, err
	}
	return current, nil
}
