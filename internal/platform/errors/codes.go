// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Lead errors
	CodeLeadEmptyID             Code = "LEAD_EMPTY_ID"
	CodeLeadTitleEmpty          Code = "LEAD_TITLE_EMPTY"
	CodeLeadDescriptionEmpty    Code = "LEAD_DESCRIPTION_EMPTY"
	CodeLeadNoVendors           Code = "LEAD_NO_VENDORS"
	CodeLeadEmptyProjectID      Code = "LEAD_EMPTY_PROJECT_ID"
	CodeLeadEmptyPmID           Code = "LEAD_EMPTY_PM_ID"
	CodeLeadEmptyVendorID       Code = "LEAD_EMPTY_VENDOR_ID"
	CodeLeadResponseEmptyMsg    Code = "LEAD_RESPONSE_EMPTY_MESSAGE"
	CodeLeadStatusDisallowsOp   Code = "LEAD_STATUS_DISALLOWS_OPERATION"
	CodeLeadStatusChanged       Code = "LEAD_STATUS_CHANGED"
	CodeLeadResponseAlreadySet  Code = "LEAD_RESPONSE_ALREADY_SET"
	CodeLeadDecisionAlreadySet  Code = "LEAD_DECISION_ALREADY_SET"
	CodeLeadDecisionMissingBase Code = "LEAD_DECISION_WITHOUT_RESPONSE"

	// Project errors
	CodeProjectEmptyID    Code = "PROJECT_EMPTY_ID"
	CodeProjectEmptyOwner Code = "PROJECT_EMPTY_OWNER"
	CodeProjectEmptyName  Code = "PROJECT_EMPTY_NAME"

	// Workspace errors
	CodeWorkspaceEmptyProjectID Code = "WORKSPACE_EMPTY_PROJECT_ID"
	CodeWorkspaceEmptyOwner     Code = "WORKSPACE_EMPTY_OWNER"
	CodeWorkspaceGrantInvalid   Code = "WORKSPACE_GRANT_INVALID"
	CodeWorkspaceGrantExpired   Code = "WORKSPACE_GRANT_EXPIRED"
	CodeWorkspaceGrantMismatch  Code = "WORKSPACE_GRANT_MISMATCH"

	// Policy errors
	CodeForbidden Code = "FORBIDDEN"

	// Directory errors
	CodeDirectoryInvalidFilter Code = "DIRECTORY_INVALID_FILTER"
	CodeDirectoryInvalidKind   Code = "DIRECTORY_INVALID_KIND"

	// Listing errors
	CodeInvalidPageToken Code = "INVALID_PAGE_TOKEN"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"

	// Collaborator errors
	CodeDependencyUnavailable Code = "DEPENDENCY_UNAVAILABLE"
	CodeInternal              Code = "INTERNAL"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeLeadEmptyID,
		CodeLeadTitleEmpty,
		CodeLeadDescriptionEmpty,
		CodeLeadNoVendors,
		CodeLeadEmptyProjectID,
		CodeLeadEmptyPmID,
		CodeLeadEmptyVendorID,
		CodeLeadResponseEmptyMsg,
		CodeProjectEmptyID,
		CodeProjectEmptyOwner,
		CodeProjectEmptyName,
		CodeWorkspaceEmptyProjectID,
		CodeWorkspaceEmptyOwner,
		CodeDirectoryInvalidFilter,
		CodeDirectoryInvalidKind,
		CodeInvalidPageToken:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeLeadStatusDisallowsOp,
		CodeLeadStatusChanged,
		CodeLeadResponseAlreadySet,
		CodeLeadDecisionAlreadySet,
		CodeLeadDecisionMissingBase,
		CodeConflict:
		return codes.FailedPrecondition

	// PermissionDenied - policy denials and rejected grants
	case CodeForbidden,
		CodeWorkspaceGrantInvalid,
		CodeWorkspaceGrantExpired,
		CodeWorkspaceGrantMismatch:
		return codes.PermissionDenied

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// Unavailable - auxiliary collaborator unreachable
	case CodeDependencyUnavailable:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}
