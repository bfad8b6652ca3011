// Package workspace models the collaboration surface granted on lead approval.
package workspace

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/platform/id"
)

var (
	// ErrEmptyProjectID indicates a missing project ID.
	ErrEmptyProjectID = apperrors.New(apperrors.CodeWorkspaceEmptyProjectID, "project id is required")
	// ErrEmptyOwner indicates a missing owning PM.
	ErrEmptyOwner = apperrors.New(apperrors.CodeWorkspaceEmptyOwner, "workspace owner is required")
)

// Capability identifies one workspace permission list.
type Capability string

const (
	// CapabilityEdit allows editing workspace content. PM-exclusive.
	CapabilityEdit Capability = "edit"
	// CapabilityComment allows commenting.
	CapabilityComment Capability = "comment"
	// CapabilityView allows read access.
	CapabilityView Capability = "view"
	// CapabilityCreateTask allows creating tasks. PM-exclusive.
	CapabilityCreateTask Capability = "create_task"
	// CapabilityAssignTask allows assigning tasks. PM-exclusive.
	CapabilityAssignTask Capability = "assign_task"
	// CapabilityUpdateTaskStatus allows moving tasks between statuses.
	CapabilityUpdateTaskStatus Capability = "update_task_status"
)

// OwnerCapabilities returns every capability, in stable order.
func OwnerCapabilities() []Capability {
	return []Capability{
		CapabilityEdit,
		CapabilityComment,
		CapabilityView,
		CapabilityCreateTask,
		CapabilityAssignTask,
		CapabilityUpdateTaskStatus,
	}
}

// CollaboratorCapabilities returns the capabilities granted to an approved
// vendor. Edit, create-task and assign-task stay PM-exclusive.
func CollaboratorCapabilities() []Capability {
	return []Capability{
		CapabilityComment,
		CapabilityView,
		CapabilityUpdateTaskStatus,
	}
}

// Workspace is the shared collaboration context for one project's approved
// vendors. The owner appears in every capability it is entitled to, and a
// vendor is a collaborator iff it holds at least one capability.
type Workspace struct {
	ID            string
	ProjectID     string
	Owner         string
	Collaborators []string
	Permissions   map[Capability][]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Create builds a new workspace owned by pmID for the given project.
func Create(projectID, pmID string, now func() time.Time, idGenerator func() (string, error)) (Workspace, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return Workspace{}, ErrEmptyProjectID
	}
	pmID = strings.TrimSpace(pmID)
	if pmID == "" {
		return Workspace{}, ErrEmptyOwner
	}

	workspaceID, err := idGenerator()
	if err != nil {
		return Workspace{}, fmt.Errorf("generate workspace id: %w", err)
	}

	permissions := make(map[Capability][]string, len(OwnerCapabilities()))
	for _, capability := range OwnerCapabilities() {
		permissions[capability] = []string{pmID}
	}

	createdAt := now().UTC()
	return Workspace{
		ID:          workspaceID,
		ProjectID:   projectID,
		Owner:       pmID,
		Permissions: permissions,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// WithCollaborator returns a copy of the workspace extended with vendorID in
// the collaborator capability lists. Extending with an already-present
// vendor is a no-op; the second return reports whether anything changed.
func (w Workspace) WithCollaborator(vendorID string, now func() time.Time) (Workspace, bool) {
	if now == nil {
		now = time.Now
	}
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" || vendorID == w.Owner {
		return w, false
	}
	if contains(w.Collaborators, vendorID) {
		return w, false
	}

	next := w
	next.Collaborators = append(append([]string(nil), w.Collaborators...), vendorID)
	next.Permissions = make(map[Capability][]string, len(w.Permissions))
	for capability, actors := range w.Permissions {
		next.Permissions[capability] = append([]string(nil), actors...)
	}
	for _, capability := range CollaboratorCapabilities() {
		if !contains(next.Permissions[capability], vendorID) {
			next.Permissions[capability] = append(next.Permissions[capability], vendorID)
		}
	}
	next.UpdatedAt = now().UTC()
	return next, true
}

// Allows reports whether actorID holds the capability.
func (w Workspace) Allows(actorID string, capability Capability) bool {
	return contains(w.Permissions[capability], actorID)
}

// IsCollaborator reports whether vendorID is listed as a collaborator.
func (w Workspace) IsCollaborator(vendorID string) bool {
	return contains(w.Collaborators, vendorID)
}

// SortedCollaborators returns the collaborator IDs in lexical order.
func (w Workspace) SortedCollaborators() []string {
	sorted := append([]string(nil), w.Collaborators...)
	sort.Strings(sorted)
	return sorted
}

func contains(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}
