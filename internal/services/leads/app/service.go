// Package app implements the lead workflow operations on top of the domain
// packages: command handling, conditional persistence, workspace
// provisioning and notification fan-out.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/platform/id"
	"github.com/craftlane/craftlane/internal/services/leads/domain/directory"
	"github.com/craftlane/craftlane/internal/services/leads/domain/lead"
	"github.com/craftlane/craftlane/internal/services/leads/domain/workspace"
	"github.com/craftlane/craftlane/internal/services/leads/storage"
	"github.com/craftlane/craftlane/internal/services/notify"
)

const (
	// directoryLookupTimeout bounds snapshot lookups so a slow directory
	// cannot hold up lead creation.
	directoryLookupTimeout = 2 * time.Second

	defaultPageSize = 50
	maxPageSize     = 200
)

// Stores groups the persistence interfaces the service depends on.
type Stores struct {
	Leads      storage.LeadStore
	Projects   storage.ProjectStore
	Workspaces storage.WorkspaceStore
	Directory  storage.DirectoryStore
}

// Config carries the service collaborators. Zero-value fields fall back to
// working defaults; a nil Dispatcher disables notifications.
type Config struct {
	Dispatcher notify.Dispatcher
	Resolver   directory.Resolver
	Grants     workspace.GrantConfig
	Now        func() time.Time
	NewID      func() (string, error)
}

// Service implements the lead workflow operations.
type Service struct {
	stores     Stores
	dispatcher notify.Dispatcher
	resolver   directory.Resolver
	grants     workspace.GrantConfig
	now        func() time.Time
	newID      func() (string, error)
	tracer     trace.Tracer
}

// NewService creates a lead workflow service.
func NewService(stores Stores, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	resolver := cfg.Resolver
	if resolver == nil && stores.Directory != nil {
		resolver = &storeResolver{store: stores.Directory}
	}
	return &Service{
		stores:     stores,
		dispatcher: cfg.Dispatcher,
		resolver:   resolver,
		grants:     cfg.Grants,
		now:        cfg.Now,
		newID:      cfg.NewID,
		tracer:     otel.Tracer("craftlane/leads"),
	}
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name)
}

// notifyActor pushes one event if a dispatcher is configured. Delivery is
// best effort; the event is dropped when the actor holds no connections.
func (s *Service) notifyActor(ctx context.Context, actorID string, event notify.Event) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Notify(ctx, actorID, event)
}

// loadLead fetches and decodes one lead, mapping storage misses to the
// NotFound taxonomy.
func (s *Service) loadLead(ctx context.Context, leadID string) (lead.Lead, error) {
	leadID = strings.TrimSpace(leadID)
	if leadID == "" {
		return lead.Lead{}, apperrors.New(apperrors.CodeLeadEmptyID, "lead id is required")
	}
	record, err := s.stores.Leads.GetLead(ctx, leadID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return lead.Lead{}, apperrors.WithMetadata(apperrors.CodeNotFound, "lead not found",
				map[string]string{"Resource": "lead", "ID": leadID})
		}
		return lead.Lead{}, apperrors.Wrap(apperrors.CodeInternal, "load lead", err)
	}
	return leadFromRecord(record)
}

// storeLeadTransition persists a lead whose status moved from fromStatus,
// translating a lost conditional write into the status-changed error.
func (s *Service) storeLeadTransition(ctx context.Context, next lead.Lead, fromStatus lead.Status) error {
	record, err := leadToRecord(next)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "encode lead", err)
	}
	err = s.stores.Leads.UpdateLeadIfStatus(ctx, record, lead.StatusLabel(fromStatus))
	if err != nil {
		if errors.Is(err, storage.ErrStatusChanged) {
			return apperrors.WithMetadata(apperrors.CodeLeadStatusChanged,
				"lead status changed since it was read",
				map[string]string{"Status": lead.StatusLabel(fromStatus)})
		}
		if errors.Is(err, storage.ErrNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "lead not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, "store lead transition", err)
	}
	return nil
}

// resolveVendorSnapshot looks up directory data for the lead snapshot,
// substituting the sentinel entry when the directory misses or times out.
func (s *Service) resolveVendorSnapshot(ctx context.Context, vendorID string) directory.Entry {
	if s.resolver == nil {
		return directory.UnknownEntry(directory.KindVendor, vendorID)
	}
	lookupCtx, cancel := context.WithTimeout(ctx, directoryLookupTimeout)
	defer cancel()

	entry, err := s.resolver.Vendor(lookupCtx, vendorID)
	if err != nil {
		return directory.UnknownEntry(directory.KindVendor, vendorID)
	}
	return entry
}

func clampPageSize(pageSize int) int {
	if pageSize <= 0 {
		return defaultPageSize
	}
	if pageSize > maxPageSize {
		return maxPageSize
	}
	return pageSize
}

// Page tokens are opaque to callers: base64 wrapping of the storage cursor.

func encodePageToken(cursor string) string {
	if cursor == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(cursor))
}

func decodePageToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", nil
	}
	cursor, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInvalidPageToken, "malformed page token", err)
	}
	return string(cursor), nil
}

// storeResolver resolves directory entries from the directory store.
type storeResolver struct {
	store storage.DirectoryStore
}

func (r *storeResolver) Vendor(ctx context.Context, vendorID string) (directory.Entry, error) {
	return r.lookup(ctx, directory.KindVendor, vendorID)
}

func (r *storeResolver) PM(ctx context.Context, pmID string) (directory.Entry, error) {
	return r.lookup(ctx, directory.KindPM, pmID)
}

func (r *storeResolver) lookup(ctx context.Context, kind directory.Kind, entryID string) (directory.Entry, error) {
	record, err := r.store.GetEntry(ctx, string(kind), entryID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return directory.Entry{}, apperrors.WithMetadata(apperrors.CodeNotFound, "directory entry not found",
				map[string]string{"Resource": string(kind), "ID": entryID})
		}
		return directory.Entry{}, apperrors.Wrap(apperrors.CodeDependencyUnavailable, "directory lookup", err)
	}
	return entryFromRecord(record), nil
}
