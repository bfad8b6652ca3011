package app

import (
	"context"
	"strings"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/services/leads/domain/lead"
	"github.com/craftlane/craftlane/internal/services/leads/domain/policy"
	"github.com/craftlane/craftlane/internal/services/leads/storage"
)

// statsPageSize bounds one listing round trip while walking a full lead
// history for aggregation.
const statsPageSize = 200

// PMStatsResult aggregates lead outcomes for one PM.
type PMStatsResult struct {
	TotalLeads        int
	CountsByStatus    map[string]int
	Responded         int
	Accepted          int
	Approved          int
	Rejected          int
	AcceptanceRate    float64
	ApprovalRate      float64
	WorkspacesGranted int
}

// VendorStatsResult aggregates lead outcomes for one vendor.
type VendorStatsResult struct {
	LeadsReceived  int
	Responded      int
	Accepted       int
	Won            int
	AcceptanceRate float64
	WinRate        float64
}

// PMStats derives aggregate lead counts for the PM's own leads. The
// projection is read-only over the lead listing.
func (s *Service) PMStats(ctx context.Context, actor policy.Actor, pmID string) (PMStatsResult, error) {
	ctx, span := s.startSpan(ctx, "leads.PMStats")
	defer span.End()

	pmID = strings.TrimSpace(pmID)
	if actor.Role != policy.RolePM || actor.ID != pmID {
		return PMStatsResult{}, apperrors.New(apperrors.CodeForbidden, "pm stats are restricted to the owning pm")
	}

	result := PMStatsResult{CountsByStatus: make(map[string]int)}
	decided := 0
	err := s.walkLeads(ctx, func(ctx context.Context, size int, cursor string) (storage.LeadPage, error) {
		return s.stores.Leads.ListLeadsByPM(ctx, pmID, size, cursor)
	}, func(l lead.Lead) {
		result.TotalLeads++
		result.CountsByStatus[lead.StatusLabel(l.Status)]++
		if l.VendorResponse != nil {
			result.Responded++
			if l.VendorResponse.Accepted {
				result.Accepted++
			}
		}
		if l.PmDecision != nil {
			decided++
			if l.PmDecision.Approved {
				result.Approved++
			} else {
				result.Rejected++
			}
			if l.PmDecision.WorkspaceAccess {
				result.WorkspacesGranted++
			}
		}
	})
	if err != nil {
		return PMStatsResult{}, err
	}

	result.AcceptanceRate = ratio(result.Accepted, result.Responded)
	result.ApprovalRate = ratio(result.Approved, decided)
	return result, nil
}

// VendorStats derives aggregate lead counts for the vendor's own leads.
func (s *Service) VendorStats(ctx context.Context, actor policy.Actor, vendorID string) (VendorStatsResult, error) {
	ctx, span := s.startSpan(ctx, "leads.VendorStats")
	defer span.End()

	vendorID = strings.TrimSpace(vendorID)
	if actor.Role != policy.RoleVendor || actor.ID != vendorID {
		return VendorStatsResult{}, apperrors.New(apperrors.CodeForbidden, "vendor stats are restricted to the vendor")
	}

	var result VendorStatsResult
	err := s.walkLeads(ctx, func(ctx context.Context, size int, cursor string) (storage.LeadPage, error) {
		return s.stores.Leads.ListLeadsByVendor(ctx, vendorID, size, cursor)
	}, func(l lead.Lead) {
		result.LeadsReceived++
		if l.VendorResponse != nil {
			result.Responded++
			if l.VendorResponse.Accepted {
				result.Accepted++
			}
		}
		if l.Status == lead.StatusPmApproved {
			result.Won++
		}
	})
	if err != nil {
		return VendorStatsResult{}, err
	}

	result.AcceptanceRate = ratio(result.Accepted, result.Responded)
	result.WinRate = ratio(result.Won, result.Accepted)
	return result, nil
}

// walkLeads visits every lead a listing yields, page by page.
func (s *Service) walkLeads(ctx context.Context, list func(context.Context, int, string) (storage.LeadPage, error), visit func(lead.Lead)) error {
	cursor := ""
	for {
		page, err := list(ctx, statsPageSize, cursor)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, "list leads for stats", err)
		}
		for _, record := range page.Leads {
			decoded, err := leadFromRecord(record)
			if err != nil {
				return err
			}
			visit(decoded)
		}
		if page.NextPageToken == "" {
			return nil
		}
		cursor = page.NextPageToken
	}
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
