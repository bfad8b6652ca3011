package i18n

import "golang.org/x/text/language"

// Error codes must match the codes defined in internal/platform/errors/codes.go.
const (
	CodeLeadEmptyID             = "LEAD_EMPTY_ID"
	CodeLeadTitleEmpty          = "LEAD_TITLE_EMPTY"
	CodeLeadDescriptionEmpty    = "LEAD_DESCRIPTION_EMPTY"
	CodeLeadNoVendors           = "LEAD_NO_VENDORS"
	CodeLeadEmptyProjectID      = "LEAD_EMPTY_PROJECT_ID"
	CodeLeadEmptyPmID           = "LEAD_EMPTY_PM_ID"
	CodeLeadEmptyVendorID       = "LEAD_EMPTY_VENDOR_ID"
	CodeLeadResponseEmptyMsg    = "LEAD_RESPONSE_EMPTY_MESSAGE"
	CodeLeadStatusDisallowsOp   = "LEAD_STATUS_DISALLOWS_OPERATION"
	CodeLeadStatusChanged       = "LEAD_STATUS_CHANGED"
	CodeLeadResponseAlreadySet  = "LEAD_RESPONSE_ALREADY_SET"
	CodeLeadDecisionAlreadySet  = "LEAD_DECISION_ALREADY_SET"
	CodeLeadDecisionMissingBase = "LEAD_DECISION_WITHOUT_RESPONSE"
	CodeProjectEmptyID          = "PROJECT_EMPTY_ID"
	CodeProjectEmptyOwner       = "PROJECT_EMPTY_OWNER"
	CodeProjectEmptyName        = "PROJECT_EMPTY_NAME"
	CodeWorkspaceEmptyProjectID = "WORKSPACE_EMPTY_PROJECT_ID"
	CodeWorkspaceEmptyOwner     = "WORKSPACE_EMPTY_OWNER"
	CodeWorkspaceGrantInvalid   = "WORKSPACE_GRANT_INVALID"
	CodeWorkspaceGrantExpired   = "WORKSPACE_GRANT_EXPIRED"
	CodeWorkspaceGrantMismatch  = "WORKSPACE_GRANT_MISMATCH"
	CodeForbidden               = "FORBIDDEN"
	CodeDirectoryInvalidFilter  = "DIRECTORY_INVALID_FILTER"
	CodeDirectoryInvalidKind    = "DIRECTORY_INVALID_KIND"
	CodeInvalidPageToken        = "INVALID_PAGE_TOKEN"
	CodeNotFound                = "NOT_FOUND"
	CodeConflict                = "CONFLICT"
	CodeDependencyUnavailable   = "DEPENDENCY_UNAVAILABLE"
	CodeInternal                = "INTERNAL"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	tag:    language.AmericanEnglish,
	messages: map[Code]string{
		// Lead errors
		CodeLeadEmptyID:             "Lead ID is required",
		CodeLeadTitleEmpty:          "Lead title cannot be empty",
		CodeLeadDescriptionEmpty:    "Lead description cannot be empty",
		CodeLeadNoVendors:           "At least one vendor must be invited",
		CodeLeadEmptyProjectID:      "Project ID is required for lead",
		CodeLeadEmptyPmID:           "Project manager ID is required for lead",
		CodeLeadEmptyVendorID:       "Vendor ID is required for lead",
		CodeLeadResponseEmptyMsg:    "A response message is required",
		CodeLeadStatusDisallowsOp:   "Lead status {{.Status}} does not allow {{.Operation}}",
		CodeLeadStatusChanged:       "The lead was updated by someone else; reload and try again",
		CodeLeadResponseAlreadySet:  "This lead already has a vendor response",
		CodeLeadDecisionAlreadySet:  "This lead already has a decision",
		CodeLeadDecisionMissingBase: "A decision requires an accepted vendor response",

		// Project errors
		CodeProjectEmptyID:    "Project ID cannot be empty",
		CodeProjectEmptyOwner: "Project owner cannot be empty",
		CodeProjectEmptyName:  "Project name cannot be empty",

		// Workspace errors
		CodeWorkspaceEmptyProjectID: "Project ID is required for workspace",
		CodeWorkspaceEmptyOwner:     "Workspace owner cannot be empty",
		CodeWorkspaceGrantInvalid:   "The workspace access link is not valid",
		CodeWorkspaceGrantExpired:   "The workspace access link has expired",
		CodeWorkspaceGrantMismatch:  "The workspace access link does not match this workspace",

		// Policy errors
		CodeForbidden: "You do not have permission to perform this action",

		// Directory errors
		CodeDirectoryInvalidFilter: "The directory filter expression is not valid",
		CodeDirectoryInvalidKind:   "Unknown directory entry kind {{.Kind}}",

		// Listing errors
		CodeInvalidPageToken: "The page token is not valid",

		// Storage errors
		CodeNotFound: "The requested record was not found",
		CodeConflict: "The request conflicts with existing data",

		// Collaborator errors
		CodeDependencyUnavailable: "A required service is temporarily unavailable",
		CodeInternal:              "An unexpected error occurred",
	},
}
