package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/services/leads/domain/policy"
	"github.com/craftlane/craftlane/internal/services/leads/domain/project"
	"github.com/craftlane/craftlane/internal/services/leads/storage"
)

// CreateProjectInput describes a new project owned by the acting PM.
type CreateProjectInput struct {
	Actor       policy.Actor
	Name        string
	Description string
}

// CreateProject registers a project owned by the acting PM. Only projects
// registered here can carry leads.
func (s *Service) CreateProject(ctx context.Context, input CreateProjectInput) (project.Project, error) {
	ctx, span := s.startSpan(ctx, "leads.CreateProject")
	defer span.End()

	if input.Actor.Role != policy.RolePM || strings.TrimSpace(input.Actor.ID) == "" {
		return project.Project{}, apperrors.New(apperrors.CodeForbidden, "projects are created by project managers")
	}

	projectID, err := s.newID()
	if err != nil {
		return project.Project{}, fmt.Errorf("generate project id: %w", err)
	}
	createdAt := s.now().UTC()
	proj, err := project.Normalize(project.Project{
		ID:          projectID,
		PmID:        input.Actor.ID,
		Name:        input.Name,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	})
	if err != nil {
		return project.Project{}, err
	}

	if err := s.stores.Projects.PutProject(ctx, projectToRecord(proj)); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return project.Project{}, apperrors.New(apperrors.CodeConflict, "project id already exists")
		}
		return project.Project{}, apperrors.Wrap(apperrors.CodeInternal, "store project", err)
	}
	return proj, nil
}

// GetProject loads one project for an actor allowed to view it.
func (s *Service) GetProject(ctx context.Context, actor policy.Actor, projectID string) (project.Project, error) {
	ctx, span := s.startSpan(ctx, "leads.GetProject")
	defer span.End()

	record, err := s.stores.Projects.GetProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return project.Project{}, apperrors.WithMetadata(apperrors.CodeNotFound, "project not found",
				map[string]string{"Resource": "project", "ID": projectID})
		}
		return project.Project{}, apperrors.Wrap(apperrors.CodeInternal, "load project", err)
	}
	proj := projectFromRecord(record)

	resource := policy.ProjectResource(proj)
	resource.Collaborators = proj.InvitedVendors
	if err := policy.Authorize(actor, resource, policy.ActionView); err != nil {
		return project.Project{}, err
	}
	return proj, nil
}
