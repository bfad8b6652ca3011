package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/craftlane/craftlane/internal/services/leads/storage"
)

// PutProject inserts one project row.
func (s *Store) PutProject(ctx context.Context, record storage.ProjectRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.ID = strings.TrimSpace(record.ID)
	record.PmID = strings.TrimSpace(record.PmID)
	if record.ID == "" || record.PmID == "" {
		return fmt.Errorf("project id and pm id are required")
	}

	invitedJSON, err := encodeVendorList(record.InvitedVendors)
	if err != nil {
		return err
	}
	approvedJSON, err := encodeVendorList(record.ApprovedVendors)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO projects (id, pm_id, name, description, workspace_id, invited_vendors_json, approved_vendors_json, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		record.ID, record.PmID, record.Name, record.Description, record.WorkspaceID,
		invitedJSON, approvedJSON, toMillis(record.CreatedAt), toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProject loads one project row by ID.
func (s *Store) GetProject(ctx context.Context, id string) (storage.ProjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ProjectRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ProjectRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.ProjectRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, pm_id, name, description, workspace_id, invited_vendors_json, approved_vendors_json, created_at, updated_at
FROM projects WHERE id = ?
`, id)
	record, err := scanProject(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ProjectRecord{}, storage.ErrNotFound
		}
		return storage.ProjectRecord{}, fmt.Errorf("get project: %w", err)
	}
	return record, nil
}

// AppendInvitedVendor adds vendorID to a project's invited list. The append
// is idempotent: an already-present vendor leaves the row untouched.
func (s *Store) AppendInvitedVendor(ctx context.Context, projectID, vendorID string) error {
	return s.appendVendor(ctx, projectID, vendorID, "invited_vendors_json")
}

// AppendApprovedVendor adds vendorID to a project's approved list, idempotently.
func (s *Store) AppendApprovedVendor(ctx context.Context, projectID, vendorID string) error {
	return s.appendVendor(ctx, projectID, vendorID, "approved_vendors_json")
}

func (s *Store) appendVendor(ctx context.Context, projectID, vendorID, column string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	vendorID = strings.TrimSpace(vendorID)
	if projectID == "" || vendorID == "" {
		return fmt.Errorf("project id and vendor id are required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin vendor append: %w", err)
	}

	var listJSON string
	err = tx.QueryRowContext(ctx, `SELECT `+column+` FROM projects WHERE id = ?`, projectID).Scan(&listJSON)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("read vendor list: %w", err)
	}

	vendors, err := decodeVendorList(listJSON)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, existing := range vendors {
		if existing == vendorID {
			// Already present; the append is a no-op.
			return tx.Rollback()
		}
	}
	vendors = append(vendors, vendorID)
	nextJSON, err := encodeVendorList(vendors)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE projects SET `+column+` = ?, updated_at = ? WHERE id = ?
`, nextJSON, toMillis(nowUTC()), projectID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("append vendor: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vendor append: %w", err)
	}
	return nil
}

// SetProjectWorkspaceID records the workspace provisioned for the project.
func (s *Store) SetProjectWorkspaceID(ctx context.Context, projectID, workspaceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	workspaceID = strings.TrimSpace(workspaceID)
	if projectID == "" || workspaceID == "" {
		return fmt.Errorf("project id and workspace id are required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE projects SET workspace_id = ?, updated_at = ? WHERE id = ?
`, workspaceID, toMillis(nowUTC()), projectID)
	if err != nil {
		return fmt.Errorf("set project workspace: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set project workspace rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanProject(scan func(dest ...any) error) (storage.ProjectRecord, error) {
	var record storage.ProjectRecord
	var invitedJSON, approvedJSON string
	var createdAt, updatedAt int64
	err := scan(
		&record.ID, &record.PmID, &record.Name, &record.Description, &record.WorkspaceID,
		&invitedJSON, &approvedJSON, &createdAt, &updatedAt,
	)
	if err != nil {
		return storage.ProjectRecord{}, err
	}
	record.InvitedVendors, err = decodeVendorList(invitedJSON)
	if err != nil {
		return storage.ProjectRecord{}, err
	}
	record.ApprovedVendors, err = decodeVendorList(approvedJSON)
	if err != nil {
		return storage.ProjectRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func encodeVendorList(vendors []string) (string, error) {
	if vendors == nil {
		vendors = []string{}
	}
	encoded, err := json.Marshal(vendors)
	if err != nil {
		return "", fmt.Errorf("encode vendor list: %w", err)
	}
	return string(encoded), nil
}

func decodeVendorList(listJSON string) ([]string, error) {
	if strings.TrimSpace(listJSON) == "" {
		return nil, nil
	}
	var vendors []string
	if err := json.Unmarshal([]byte(listJSON), &vendors); err != nil {
		return nil, fmt.Errorf("decode vendor list: %w", err)
	}
	return vendors, nil
}
