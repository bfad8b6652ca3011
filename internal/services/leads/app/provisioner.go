package app

import (
	"context"
	"errors"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/services/leads/domain/workspace"
	"github.com/craftlane/craftlane/internal/services/leads/storage"
)

// maxWorkspaceExtendAttempts bounds the re-read and merge loop when a
// workspace extension loses its conditional write to a concurrent approval.
const maxWorkspaceExtendAttempts = 5

// provisionWorkspace creates or extends the workspace for projectID and
// grants vendorID collaborator access. The create path races safely: the
// project-unique constraint picks one winner and the loser extends the
// winner's workspace instead.
func (s *Service) provisionWorkspace(ctx context.Context, projectID, pmID, vendorID string) (workspace.Workspace, error) {
	created, err := workspace.Create(projectID, pmID, s.now, s.newID)
	if err != nil {
		return workspace.Workspace{}, err
	}
	created, _ = created.WithCollaborator(vendorID, s.now)

	record, err := workspaceToRecord(created)
	if err != nil {
		return workspace.Workspace{}, apperrors.Wrap(apperrors.CodeInternal, "encode workspace", err)
	}
	stored, inserted, err := s.stores.Workspaces.CreateWorkspaceIfAbsent(ctx, record)
	if err != nil {
		return workspace.Workspace{}, apperrors.Wrap(apperrors.CodeDependencyUnavailable, "provision workspace", err)
	}
	if inserted {
		return created, nil
	}

	for attempt := 0; attempt < maxWorkspaceExtendAttempts; attempt++ {
		existing, err := workspaceFromRecord(stored)
		if err != nil {
			return workspace.Workspace{}, apperrors.Wrap(apperrors.CodeInternal, "decode workspace", err)
		}
		extended, changed := existing.WithCollaborator(vendorID, s.now)
		if !changed {
			return existing, nil
		}

		updatedRecord, err := workspaceToRecord(extended)
		if err != nil {
			return workspace.Workspace{}, apperrors.Wrap(apperrors.CodeInternal, "encode workspace", err)
		}
		err = s.stores.Workspaces.UpdateWorkspaceIf(ctx, updatedRecord, stored.UpdatedAt)
		if err == nil {
			return extended, nil
		}
		if !errors.Is(err, storage.ErrConcurrentUpdate) {
			return workspace.Workspace{}, apperrors.Wrap(apperrors.CodeDependencyUnavailable, "extend workspace", err)
		}

		// Lost the conditional write to a concurrent extension. Re-read
		// the winner's row and merge our collaborator into it.
		stored, err = s.stores.Workspaces.GetWorkspaceByProject(ctx, projectID)
		if err != nil {
			return workspace.Workspace{}, apperrors.Wrap(apperrors.CodeDependencyUnavailable, "reload workspace", err)
		}
	}
	return workspace.Workspace{}, apperrors.New(apperrors.CodeDependencyUnavailable,
		"workspace extension kept losing to concurrent writers")
}

// WorkspaceForProject loads the workspace provisioned for a project.
func (s *Service) WorkspaceForProject(ctx context.Context, projectID string) (workspace.Workspace, error) {
	record, err := s.stores.Workspaces.GetWorkspaceByProject(ctx, projectID)
	if err != nil {
		return workspace.Workspace{}, s.mapWorkspaceLoadError(err, projectID)
	}
	return workspaceFromRecord(record)
}

func (s *Service) mapWorkspaceLoadError(err error, workspaceID string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.WithMetadata(apperrors.CodeNotFound, "workspace not found",
			map[string]string{"Resource": "workspace", "ID": workspaceID})
	}
	return apperrors.Wrap(apperrors.CodeInternal, "load workspace", err)
}
