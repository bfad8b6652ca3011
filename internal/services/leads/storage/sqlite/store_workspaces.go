package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/craftlane/craftlane/internal/services/leads/storage"
)

const workspaceColumns = "id, project_id, owner_id, collaborators_json, permissions_json, created_at, updated_at"

// CreateWorkspaceIfAbsent inserts the workspace unless its project already
// has one. The project_id unique index makes concurrent provisioning safe:
// the losing writer reads back the winner's row.
func (s *Store) CreateWorkspaceIfAbsent(ctx context.Context, record storage.WorkspaceRecord) (storage.WorkspaceRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.WorkspaceRecord{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.WorkspaceRecord{}, false, fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	record.ProjectID = strings.TrimSpace(record.ProjectID)
	record.Owner = strings.TrimSpace(record.Owner)
	if record.ID == "" || record.ProjectID == "" || record.Owner == "" {
		return storage.WorkspaceRecord{}, false, fmt.Errorf("workspace id, project id and owner are required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO workspaces (`+workspaceColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(project_id) DO NOTHING
`,
		record.ID, record.ProjectID, record.Owner, record.CollaboratorsJSON, record.PermissionsJSON,
		toMillis(record.CreatedAt), toMillis(record.UpdatedAt),
	)
	if err != nil {
		return storage.WorkspaceRecord{}, false, fmt.Errorf("insert workspace: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.WorkspaceRecord{}, false, fmt.Errorf("insert workspace rows affected: %w", err)
	}
	if affected > 0 {
		return record, true, nil
	}

	existing, err := s.GetWorkspaceByProject(ctx, record.ProjectID)
	if err != nil {
		return storage.WorkspaceRecord{}, false, err
	}
	return existing, false, nil
}

// GetWorkspace loads one workspace row by ID.
func (s *Store) GetWorkspace(ctx context.Context, id string) (storage.WorkspaceRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.WorkspaceRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.WorkspaceRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.WorkspaceRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id)
	record, err := scanWorkspace(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.WorkspaceRecord{}, storage.ErrNotFound
		}
		return storage.WorkspaceRecord{}, fmt.Errorf("get workspace: %w", err)
	}
	return record, nil
}

// GetWorkspaceByProject loads the workspace provisioned for projectID.
func (s *Store) GetWorkspaceByProject(ctx context.Context, projectID string) (storage.WorkspaceRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.WorkspaceRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.WorkspaceRecord{}, fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return storage.WorkspaceRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE project_id = ?`, projectID)
	record, err := scanWorkspace(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.WorkspaceRecord{}, storage.ErrNotFound
		}
		return storage.WorkspaceRecord{}, fmt.Errorf("get workspace by project: %w", err)
	}
	return record, nil
}

// UpdateWorkspaceIf overwrites the workspace row only while the stored
// updated_at still equals expectedUpdatedAt. A zero-row update from a
// concurrent extension is reported as ErrConcurrentUpdate so the caller
// can re-read and merge.
func (s *Store) UpdateWorkspaceIf(ctx context.Context, record storage.WorkspaceRecord, expectedUpdatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	if record.ID == "" {
		return fmt.Errorf("workspace id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE workspaces
SET collaborators_json = ?, permissions_json = ?, updated_at = ?
WHERE id = ? AND updated_at = ?
`, record.CollaboratorsJSON, record.PermissionsJSON, toMillis(record.UpdatedAt), record.ID, toMillis(expectedUpdatedAt))
	if err != nil {
		return fmt.Errorf("update workspace: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update workspace rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetWorkspace(ctx, record.ID); err != nil {
			return err
		}
		return storage.ErrConcurrentUpdate
	}
	return nil
}

func scanWorkspace(scan func(dest ...any) error) (storage.WorkspaceRecord, error) {
	var record storage.WorkspaceRecord
	var createdAt, updatedAt int64
	err := scan(
		&record.ID, &record.ProjectID, &record.Owner, &record.CollaboratorsJSON,
		&record.PermissionsJSON, &createdAt, &updatedAt,
	)
	if err != nil {
		return storage.WorkspaceRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
