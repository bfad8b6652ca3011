// Package policy provides authorization decisions for lead workflow actions.
package policy

import (
	"fmt"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/services/leads/domain/lead"
	"github.com/craftlane/craftlane/internal/services/leads/domain/project"
	"github.com/craftlane/craftlane/internal/services/leads/domain/workspace"
)

// Role identifies the kind of actor issuing a command.
type Role int

const (
	// RoleUnspecified represents an unknown actor role.
	RoleUnspecified Role = iota
	// RolePM is a project manager.
	RolePM
	// RoleVendor is a vendor.
	RoleVendor
)

// Actor is the caller identity supplied by the transport layer. The core
// never derives identity itself.
type Actor struct {
	ID   string
	Role Role
}

// Action represents a policy decision for an actor action.
type Action int

const (
	// ActionSendLeads allows creating leads on a project. PM only.
	ActionSendLeads Action = iota + 1
	// ActionRespond allows answering a lead. Vendor only.
	ActionRespond
	// ActionUpdateResponse allows amending a recorded response. Vendor only.
	ActionUpdateResponse
	// ActionDecide allows approving or rejecting an accepted lead. PM only.
	ActionDecide
	// ActionView allows reading a resource.
	ActionView
	// ActionAccessWorkspace allows entering a workspace.
	ActionAccessWorkspace
)

// ResourceKind labels the resource a decision applies to.
type ResourceKind string

const (
	// KindLead is a lead invitation.
	KindLead ResourceKind = "lead"
	// KindProject is a project.
	KindProject ResourceKind = "project"
	// KindWorkspace is a collaboration workspace.
	KindWorkspace ResourceKind = "workspace"
)

// Resource captures the ownership and collaboration relationships a
// decision is evaluated against.
type Resource struct {
	Kind          ResourceKind
	ID            string
	PmID          string
	VendorID      string
	Collaborators []string
}

// LeadResource adapts a lead for policy evaluation.
func LeadResource(l lead.Lead) Resource {
	return Resource{Kind: KindLead, ID: l.ID, PmID: l.PmID, VendorID: l.VendorID}
}

// ProjectResource adapts a project for policy evaluation.
func ProjectResource(p project.Project) Resource {
	return Resource{Kind: KindProject, ID: p.ID, PmID: p.PmID}
}

// WorkspaceResource adapts a workspace for policy evaluation.
func WorkspaceResource(w workspace.Workspace) Resource {
	return Resource{Kind: KindWorkspace, ID: w.ID, PmID: w.Owner, Collaborators: w.Collaborators}
}

// Authorize decides whether the actor may perform the action on the
// resource. It returns nil to allow, or a Forbidden error with the denial
// reason. Evaluation is pure; callers must invoke it before any mutating
// persistence.
func Authorize(actor Actor, resource Resource, action Action) error {
	switch action {
	case ActionSendLeads, ActionDecide:
		if actor.Role != RolePM {
			return deny(actor, resource, action, "action is restricted to project managers")
		}
		if actor.ID == "" || actor.ID != resource.PmID {
			return deny(actor, resource, action, "actor does not own the resource")
		}
		return nil

	case ActionRespond, ActionUpdateResponse:
		if actor.Role != RoleVendor {
			return deny(actor, resource, action, "action is restricted to vendors")
		}
		if actor.ID == "" || actor.ID != resource.VendorID {
			return deny(actor, resource, action, "lead is addressed to a different vendor")
		}
		return nil

	case ActionView, ActionAccessWorkspace:
		if actor.ID == "" {
			return deny(actor, resource, action, "actor identity is required")
		}
		if actor.Role == RolePM && actor.ID == resource.PmID {
			return nil
		}
		if actor.Role == RoleVendor {
			if actor.ID == resource.VendorID {
				return nil
			}
			for _, collaborator := range resource.Collaborators {
				if collaborator == actor.ID {
					return nil
				}
			}
		}
		return deny(actor, resource, action, "actor is not related to the resource")

	default:
		return deny(actor, resource, action, "unknown action")
	}
}

func deny(actor Actor, resource Resource, action Action, reason string) *apperrors.Error {
	return apperrors.WithMetadata(
		apperrors.CodeForbidden,
		fmt.Sprintf("actor %s denied %s on %s %s: %s", actor.ID, actionLabel(action), resource.Kind, resource.ID, reason),
		map[string]string{
			"Action":   actionLabel(action),
			"Resource": string(resource.Kind),
		},
	)
}

func actionLabel(action Action) string {
	switch action {
	case ActionSendLeads:
		return "SEND_LEADS"
	case ActionRespond:
		return "RESPOND"
	case ActionUpdateResponse:
		return "UPDATE_RESPONSE"
	case ActionDecide:
		return "DECIDE"
	case ActionView:
		return "VIEW"
	case ActionAccessWorkspace:
		return "ACCESS_WORKSPACE"
	default:
		return "UNSPECIFIED"
	}
}

// RoleLabel returns the string label for an actor role.
func RoleLabel(role Role) string {
	switch role {
	case RolePM:
		return "PM"
	case RoleVendor:
		return "VENDOR"
	default:
		return "UNSPECIFIED"
	}
}

// RoleFromLabel converts a role label to a Role value.
func RoleFromLabel(label string) Role {
	switch label {
	case "PM", "pm":
		return RolePM
	case "VENDOR", "vendor":
		return RoleVendor
	default:
		return RoleUnspecified
	}
}
