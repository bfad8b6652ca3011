package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/craftlane/craftlane/internal/services/leads/storage"
)

const leadColumns = "id, project_id, pm_id, vendor_id, workspace_id, status, details_json, vendor_snapshot_json, project_snapshot_json, vendor_response_json, pm_decision_json, created_at, updated_at"

// PutLead inserts one lead row. The (project, vendor) pair is unique, so a
// duplicate send for the same pairing surfaces as ErrConflict.
func (s *Store) PutLead(ctx context.Context, record storage.LeadRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record, err := normalizeLeadRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO leads (`+leadColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		record.ID, record.ProjectID, record.PmID, record.VendorID, record.WorkspaceID,
		record.Status, record.DetailsJSON, record.VendorSnapshotJSON, record.ProjectSnapshotJSON,
		record.VendorResponseJSON, record.PmDecisionJSON,
		toMillis(record.CreatedAt), toMillis(record.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// GetLead loads one lead row by ID.
func (s *Store) GetLead(ctx context.Context, id string) (storage.LeadRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.LeadRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.LeadRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.LeadRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	record, err := scanLead(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.LeadRecord{}, storage.ErrNotFound
		}
		return storage.LeadRecord{}, fmt.Errorf("get lead: %w", err)
	}
	return record, nil
}

// UpdateLeadIfStatus overwrites the lead row only while the stored status
// still equals expectedStatus. A zero-row update from a concurrent
// transition is reported as ErrStatusChanged.
func (s *Store) UpdateLeadIfStatus(ctx context.Context, record storage.LeadRecord, expectedStatus string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record, err := normalizeLeadRecord(record)
	if err != nil {
		return err
	}
	expectedStatus = strings.TrimSpace(expectedStatus)
	if expectedStatus == "" {
		return fmt.Errorf("expected status is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE leads
SET workspace_id = ?, status = ?, details_json = ?, vendor_snapshot_json = ?, project_snapshot_json = ?,
    vendor_response_json = ?, pm_decision_json = ?, updated_at = ?
WHERE id = ? AND status = ?
`,
		record.WorkspaceID, record.Status, record.DetailsJSON, record.VendorSnapshotJSON,
		record.ProjectSnapshotJSON, record.VendorResponseJSON, record.PmDecisionJSON,
		toMillis(record.UpdatedAt), record.ID, expectedStatus,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a lost race from a missing row.
	var exists int
	err = s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM leads WHERE id = ?`, record.ID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("check lead existence: %w", err)
	}
	return storage.ErrStatusChanged
}

// GetLeadByProjectAndVendor loads the lead addressed to vendorID on projectID.
func (s *Store) GetLeadByProjectAndVendor(ctx context.Context, projectID, vendorID string) (storage.LeadRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.LeadRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.LeadRecord{}, fmt.Errorf("storage is not configured")
	}
	projectID = strings.TrimSpace(projectID)
	vendorID = strings.TrimSpace(vendorID)
	if projectID == "" || vendorID == "" {
		return storage.LeadRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+leadColumns+` FROM leads WHERE project_id = ? AND vendor_id = ?
`, projectID, vendorID)
	record, err := scanLead(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.LeadRecord{}, storage.ErrNotFound
		}
		return storage.LeadRecord{}, fmt.Errorf("get lead by project and vendor: %w", err)
	}
	return record, nil
}

// ListLeadsByPM pages leads issued by one PM newest-first with cursor pagination.
func (s *Store) ListLeadsByPM(ctx context.Context, pmID string, pageSize int, pageToken string) (storage.LeadPage, error) {
	return s.listLeadsByColumn(ctx, "pm_id", pmID, pageSize, pageToken)
}

// ListLeadsByProject pages leads belonging to one project newest-first.
func (s *Store) ListLeadsByProject(ctx context.Context, projectID string, pageSize int, pageToken string) (storage.LeadPage, error) {
	return s.listLeadsByColumn(ctx, "project_id", projectID, pageSize, pageToken)
}

// ListLeadsByVendor pages leads addressed to one vendor newest-first.
func (s *Store) ListLeadsByVendor(ctx context.Context, vendorID string, pageSize int, pageToken string) (storage.LeadPage, error) {
	return s.listLeadsByColumn(ctx, "vendor_id", vendorID, pageSize, pageToken)
}

func (s *Store) listLeadsByColumn(ctx context.Context, column, value string, pageSize int, pageToken string) (storage.LeadPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.LeadPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.LeadPage{}, fmt.Errorf("storage is not configured")
	}
	value = strings.TrimSpace(value)
	pageToken = strings.TrimSpace(pageToken)
	if value == "" {
		return storage.LeadPage{}, fmt.Errorf("%s is required", column)
	}
	if pageSize <= 0 {
		return storage.LeadPage{}, fmt.Errorf("page size must be greater than zero")
	}

	limit := pageSize + 1
	if pageToken == "" {
		rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+leadColumns+` FROM leads
WHERE `+column+` = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`, value, limit)
		if err != nil {
			return storage.LeadPage{}, fmt.Errorf("list leads: %w", err)
		}
		defer rows.Close()
		return collectLeadPage(rows, pageSize)
	}

	tokenCreatedAt, err := s.leadCreatedAtByID(ctx, pageToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.LeadPage{}, nil
		}
		return storage.LeadPage{}, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+leadColumns+` FROM leads
WHERE `+column+` = ?
  AND (created_at < ? OR (created_at = ? AND id < ?))
ORDER BY created_at DESC, id DESC
LIMIT ?
`, value, tokenCreatedAt, tokenCreatedAt, pageToken, limit)
	if err != nil {
		return storage.LeadPage{}, fmt.Errorf("list leads with token: %w", err)
	}
	defer rows.Close()
	return collectLeadPage(rows, pageSize)
}

func (s *Store) leadCreatedAtByID(ctx context.Context, id string) (int64, error) {
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT created_at FROM leads WHERE id = ?`, id).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("resolve lead page token: %w", err)
	}
	return createdAt, nil
}

func collectLeadPage(rows *sql.Rows, pageSize int) (storage.LeadPage, error) {
	var page storage.LeadPage
	for rows.Next() {
		record, err := scanLead(rows.Scan)
		if err != nil {
			return storage.LeadPage{}, fmt.Errorf("scan lead: %w", err)
		}
		page.Leads = append(page.Leads, record)
	}
	if err := rows.Err(); err != nil {
		return storage.LeadPage{}, fmt.Errorf("iterate leads: %w", err)
	}
	if len(page.Leads) > pageSize {
		page.Leads = page.Leads[:pageSize]
		page.NextPageToken = page.Leads[pageSize-1].ID
	}
	return page, nil
}

func scanLead(scan func(dest ...any) error) (storage.LeadRecord, error) {
	var record storage.LeadRecord
	var createdAt, updatedAt int64
	err := scan(
		&record.ID, &record.ProjectID, &record.PmID, &record.VendorID, &record.WorkspaceID,
		&record.Status, &record.DetailsJSON, &record.VendorSnapshotJSON, &record.ProjectSnapshotJSON,
		&record.VendorResponseJSON, &record.PmDecisionJSON, &createdAt, &updatedAt,
	)
	if err != nil {
		return storage.LeadRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func normalizeLeadRecord(record storage.LeadRecord) (storage.LeadRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.ProjectID = strings.TrimSpace(record.ProjectID)
	record.PmID = strings.TrimSpace(record.PmID)
	record.VendorID = strings.TrimSpace(record.VendorID)
	record.WorkspaceID = strings.TrimSpace(record.WorkspaceID)
	record.Status = strings.TrimSpace(record.Status)
	if record.ID == "" {
		return storage.LeadRecord{}, fmt.Errorf("lead id is required")
	}
	if record.ProjectID == "" || record.PmID == "" || record.VendorID == "" {
		return storage.LeadRecord{}, fmt.Errorf("lead relationships are required")
	}
	if record.Status == "" {
		return storage.LeadRecord{}, fmt.Errorf("lead status is required")
	}
	if record.CreatedAt.IsZero() || record.UpdatedAt.IsZero() {
		return storage.LeadRecord{}, fmt.Errorf("lead timestamps are required")
	}
	return record, nil
}
