package lead

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
)

// Operation describes a category of lead operation for status checks.
type Operation int

const (
	// OpUnspecified represents an invalid operation.
	OpUnspecified Operation = iota
	// OpRead represents read-only operations. Allowed for all statuses.
	OpRead
	// OpVendorRespond represents the vendor accept/decline transition.
	OpVendorRespond
	// OpUpdateResponse represents the vendor amending an accepted response.
	OpUpdateResponse
	// OpPmDecide represents the PM approve/reject transition.
	OpPmDecide
)

// ValidateOperation ensures the lead status allows the requested operation.
func ValidateOperation(status Status, op Operation) error {
	if op == OpUnspecified {
		return newStatusOpError(status, op)
	}
	if op == OpRead {
		return nil
	}

	switch status {
	case StatusSent:
		switch op {
		case OpVendorRespond:
			return nil
		default:
			return newStatusOpError(status, op)
		}
	case StatusVendorAccepted:
		switch op {
		case OpUpdateResponse, OpPmDecide:
			return nil
		default:
			return newStatusOpError(status, op)
		}
	default:
		// vendor_declined, pm_approved and pm_rejected are terminal.
		return newStatusOpError(status, op)
	}
}

// RespondInput carries one vendor answer to a sent lead.
type RespondInput struct {
	Accepted         bool
	Message          string
	ProposedBudget   string
	ProposedTimeline string
	Attachments      []string
}

// ApplyVendorResponse transitions a sent lead to vendor_accepted or
// vendor_declined and records the response. The returned lead is a new
// value; the receiver is never mutated.
func ApplyVendorResponse(current Lead, input RespondInput, now func() time.Time) (Lead, error) {
	if now == nil {
		now = time.Now
	}
	if err := ValidateOperation(current.Status, OpVendorRespond); err != nil {
		return Lead{}, err
	}
	if current.VendorResponse != nil {
		return Lead{}, apperrors.New(apperrors.CodeLeadResponseAlreadySet, "vendor response already recorded")
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return Lead{}, ErrEmptyMessage
	}

	respondedAt := now().UTC()
	next := current
	next.VendorResponse = &VendorResponse{
		Accepted:         input.Accepted,
		Message:          message,
		ProposedBudget:   strings.TrimSpace(input.ProposedBudget),
		ProposedTimeline: strings.TrimSpace(input.ProposedTimeline),
		Attachments:      append([]string(nil), input.Attachments...),
		RespondedAt:      respondedAt,
	}
	if input.Accepted {
		next.Status = StatusVendorAccepted
	} else {
		next.Status = StatusVendorDeclined
	}
	next.UpdatedAt = respondedAt
	return next, nil
}

// ResponsePatch carries the amendable fields of a recorded vendor response.
// Nil fields are left untouched; Accepted can never change.
type ResponsePatch struct {
	Message          *string
	ProposedBudget   *string
	ProposedTimeline *string
	Attachments      []string
}

// ApplyResponsePatch amends the vendor response of a vendor_accepted lead.
func ApplyResponsePatch(current Lead, patch ResponsePatch, now func() time.Time) (Lead, error) {
	if now == nil {
		now = time.Now
	}
	if err := ValidateOperation(current.Status, OpUpdateResponse); err != nil {
		return Lead{}, err
	}
	if current.VendorResponse == nil {
		return Lead{}, apperrors.New(apperrors.CodeInternal, "accepted lead is missing its vendor response")
	}

	response := *current.VendorResponse
	if patch.Message != nil {
		message := strings.TrimSpace(*patch.Message)
		if message == "" {
			return Lead{}, ErrEmptyMessage
		}
		response.Message = message
	}
	if patch.ProposedBudget != nil {
		response.ProposedBudget = strings.TrimSpace(*patch.ProposedBudget)
	}
	if patch.ProposedTimeline != nil {
		response.ProposedTimeline = strings.TrimSpace(*patch.ProposedTimeline)
	}
	if patch.Attachments != nil {
		response.Attachments = append([]string(nil), patch.Attachments...)
	}

	next := current
	next.VendorResponse = &response
	next.UpdatedAt = now().UTC()
	return next, nil
}

// DecideInput carries one PM verdict on an accepted lead.
type DecideInput struct {
	Approved        bool
	Feedback        string
	WorkspaceAccess bool
}

// ApplyDecision transitions a vendor_accepted lead to pm_approved or
// pm_rejected and records the decision.
func ApplyDecision(current Lead, input DecideInput, now func() time.Time) (Lead, error) {
	if now == nil {
		now = time.Now
	}
	if err := ValidateOperation(current.Status, OpPmDecide); err != nil {
		return Lead{}, err
	}
	if current.PmDecision != nil {
		return Lead{}, apperrors.New(apperrors.CodeLeadDecisionAlreadySet, "pm decision already recorded")
	}
	if current.VendorResponse == nil || !current.VendorResponse.Accepted {
		return Lead{}, apperrors.New(apperrors.CodeLeadDecisionMissingBase, "pm decision requires an accepted vendor response")
	}

	decidedAt := now().UTC()
	next := current
	next.PmDecision = &PmDecision{
		Approved:        input.Approved,
		Feedback:        strings.TrimSpace(input.Feedback),
		WorkspaceAccess: input.Approved && input.WorkspaceAccess,
		DecidedAt:       decidedAt,
	}
	if input.Approved {
		next.Status = StatusPmApproved
	} else {
		next.Status = StatusPmRejected
	}
	next.UpdatedAt = decidedAt
	return next, nil
}

// newStatusOpError creates a structured error for disallowed status/operation combinations.
func newStatusOpError(status Status, op Operation) *apperrors.Error {
	statusLabel := StatusLabel(status)
	opLabel := operationLabel(op)
	return apperrors.WithMetadata(
		apperrors.CodeLeadStatusDisallowsOp,
		fmt.Sprintf("lead status %s does not allow operation %s", statusLabel, opLabel),
		map[string]string{"Status": statusLabel, "Operation": opLabel},
	)
}

func operationLabel(op Operation) string {
	switch op {
	case OpRead:
		return "READ"
	case OpVendorRespond:
		return "VENDOR_RESPOND"
	case OpUpdateResponse:
		return "UPDATE_RESPONSE"
	case OpPmDecide:
		return "PM_DECIDE"
	default:
		return "UNSPECIFIED"
	}
}
