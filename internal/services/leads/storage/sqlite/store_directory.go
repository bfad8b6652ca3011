package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/craftlane/craftlane/internal/services/leads/storage"
)

const directoryColumns = "kind, id, name, email, company, specialization, created_at, updated_at"

// PutEntry upserts one directory row keyed by (kind, id).
func (s *Store) PutEntry(ctx context.Context, record storage.DirectoryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.Kind = strings.TrimSpace(record.Kind)
	record.ID = strings.TrimSpace(record.ID)
	if record.Kind == "" || record.ID == "" {
		return fmt.Errorf("directory kind and id are required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO directory_entries (`+directoryColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(kind, id) DO UPDATE SET
    name = excluded.name,
    email = excluded.email,
    company = excluded.company,
    specialization = excluded.specialization,
    updated_at = excluded.updated_at
`,
		record.Kind, record.ID, record.Name, record.Email, record.Company,
		record.Specialization, toMillis(record.CreatedAt), toMillis(record.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put directory entry: %w", err)
	}
	return nil
}

// GetEntry loads one directory row by kind and ID.
func (s *Store) GetEntry(ctx context.Context, kind, id string) (storage.DirectoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.DirectoryRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.DirectoryRecord{}, fmt.Errorf("storage is not configured")
	}
	kind = strings.TrimSpace(kind)
	id = strings.TrimSpace(id)
	if kind == "" || id == "" {
		return storage.DirectoryRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+directoryColumns+` FROM directory_entries WHERE kind = ? AND id = ?
`, kind, id)
	record, err := scanDirectoryEntry(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.DirectoryRecord{}, storage.ErrNotFound
		}
		return storage.DirectoryRecord{}, fmt.Errorf("get directory entry: %w", err)
	}
	return record, nil
}

// ListVendors pages vendor rows matching the filter, ordered by name then
// ID. Page tokens name the last entry ID of the previous page.
func (s *Store) ListVendors(ctx context.Context, filter storage.VendorFilter, pageSize int, pageToken string) (storage.DirectoryPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.DirectoryPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.DirectoryPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	conditions := []string{"kind = ?"}
	params := []any{"vendor"}
	if clause := strings.TrimSpace(filter.Clause); clause != "" {
		conditions = append(conditions, "("+clause+")")
		params = append(params, filter.Params...)
	}

	pageToken = strings.TrimSpace(pageToken)
	if pageToken != "" {
		name, err := s.vendorNameByID(ctx, pageToken)
		if err != nil {
			return storage.DirectoryPage{}, err
		}
		conditions = append(conditions, "(name > ? OR (name = ? AND id > ?))")
		params = append(params, name, name, pageToken)
	}

	query := `
SELECT ` + directoryColumns + ` FROM directory_entries
WHERE ` + strings.Join(conditions, " AND ") + `
ORDER BY name ASC, id ASC
LIMIT ?
`
	params = append(params, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return storage.DirectoryPage{}, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var entries []storage.DirectoryRecord
	for rows.Next() {
		record, err := scanDirectoryEntry(rows.Scan)
		if err != nil {
			return storage.DirectoryPage{}, fmt.Errorf("scan vendor: %w", err)
		}
		entries = append(entries, record)
	}
	if err := rows.Err(); err != nil {
		return storage.DirectoryPage{}, fmt.Errorf("list vendors rows: %w", err)
	}

	page := storage.DirectoryPage{Entries: entries}
	if len(entries) > pageSize {
		page.Entries = entries[:pageSize]
		page.NextPageToken = page.Entries[pageSize-1].ID
	}
	return page, nil
}

func (s *Store) vendorNameByID(ctx context.Context, id string) (string, error) {
	var name string
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT name FROM directory_entries WHERE kind = 'vendor' AND id = ?
`, id).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("resolve vendor page token: %w", err)
	}
	return name, nil
}

func scanDirectoryEntry(scan func(dest ...any) error) (storage.DirectoryRecord, error) {
	var record storage.DirectoryRecord
	var createdAt, updatedAt int64
	err := scan(
		&record.Kind, &record.ID, &record.Name, &record.Email, &record.Company,
		&record.Specialization, &createdAt, &updatedAt,
	)
	if err != nil {
		return storage.DirectoryRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
