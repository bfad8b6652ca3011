package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/craftlane/craftlane/internal/services/leads/domain/policy"
	"github.com/craftlane/craftlane/internal/services/leads/storage"
	"github.com/craftlane/craftlane/internal/services/notify"
)

// fakeLeadStore keeps lead records in memory with the same uniqueness and
// conditional-write rules as the sqlite store.
type fakeLeadStore struct {
	mu    sync.Mutex
	leads map[string]storage.LeadRecord
	order []string

	putErr    error
	updateErr error
	listErr   error
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{leads: make(map[string]storage.LeadRecord)}
}

func (f *fakeLeadStore) PutLead(_ context.Context, record storage.LeadRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	if _, ok := f.leads[record.ID]; ok {
		return storage.ErrConflict
	}
	for _, stored := range f.leads {
		if stored.ProjectID == record.ProjectID && stored.VendorID == record.VendorID {
			return storage.ErrConflict
		}
	}
	f.leads[record.ID] = record
	f.order = append(f.order, record.ID)
	return nil
}

func (f *fakeLeadStore) GetLead(_ context.Context, id string) (storage.LeadRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.leads[id]
	if !ok {
		return storage.LeadRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeLeadStore) UpdateLeadIfStatus(_ context.Context, record storage.LeadRecord, expectedStatus string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.leads[record.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if stored.Status != expectedStatus {
		return storage.ErrStatusChanged
	}
	f.leads[record.ID] = record
	return nil
}

func (f *fakeLeadStore) GetLeadByProjectAndVendor(_ context.Context, projectID, vendorID string) (storage.LeadRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.leads {
		if stored.ProjectID == projectID && stored.VendorID == vendorID {
			return stored, nil
		}
	}
	return storage.LeadRecord{}, storage.ErrNotFound
}

func (f *fakeLeadStore) ListLeadsByPM(_ context.Context, pmID string, pageSize int, pageToken string) (storage.LeadPage, error) {
	return f.list(func(record storage.LeadRecord) bool { return record.PmID == pmID }, pageSize, pageToken)
}

func (f *fakeLeadStore) ListLeadsByProject(_ context.Context, projectID string, pageSize int, pageToken string) (storage.LeadPage, error) {
	return f.list(func(record storage.LeadRecord) bool { return record.ProjectID == projectID }, pageSize, pageToken)
}

func (f *fakeLeadStore) ListLeadsByVendor(_ context.Context, vendorID string, pageSize int, pageToken string) (storage.LeadPage, error) {
	return f.list(func(record storage.LeadRecord) bool { return record.VendorID == vendorID }, pageSize, pageToken)
}

// list returns matching leads newest first, resuming after the lead the
// page token names.
func (f *fakeLeadStore) list(match func(storage.LeadRecord) bool, pageSize int, pageToken string) (storage.LeadPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return storage.LeadPage{}, f.listErr
	}

	var matched []storage.LeadRecord
	for i := len(f.order) - 1; i >= 0; i-- {
		record := f.leads[f.order[i]]
		if match(record) {
			matched = append(matched, record)
		}
	}

	start := 0
	if pageToken != "" {
		start = -1
		for i, record := range matched {
			if record.ID == pageToken {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return storage.LeadPage{}, storage.ErrNotFound
		}
	}

	var page storage.LeadPage
	for i := start; i < len(matched) && len(page.Leads) < pageSize; i++ {
		page.Leads = append(page.Leads, matched[i])
	}
	if last := start + len(page.Leads); last < len(matched) && len(page.Leads) > 0 {
		page.NextPageToken = page.Leads[len(page.Leads)-1].ID
	}
	return page, nil
}

type fakeProjectStore struct {
	mu       sync.Mutex
	projects map[string]storage.ProjectRecord

	appendInvitedErr  error
	appendApprovedErr error
	setWorkspaceErr   error
}

func newFakeProjectStore() *fakeProjectStore {
	return &fakeProjectStore{projects: make(map[string]storage.ProjectRecord)}
}

func (f *fakeProjectStore) PutProject(_ context.Context, record storage.ProjectRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[record.ID]; ok {
		return storage.ErrConflict
	}
	f.projects[record.ID] = record
	return nil
}

func (f *fakeProjectStore) GetProject(_ context.Context, id string) (storage.ProjectRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.projects[id]
	if !ok {
		return storage.ProjectRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeProjectStore) AppendInvitedVendor(_ context.Context, projectID, vendorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendInvitedErr != nil {
		return f.appendInvitedErr
	}
	record, ok := f.projects[projectID]
	if !ok {
		return storage.ErrNotFound
	}
	record.InvitedVendors = appendUnique(record.InvitedVendors, vendorID)
	f.projects[projectID] = record
	return nil
}

func (f *fakeProjectStore) AppendApprovedVendor(_ context.Context, projectID, vendorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendApprovedErr != nil {
		return f.appendApprovedErr
	}
	record, ok := f.projects[projectID]
	if !ok {
		return storage.ErrNotFound
	}
	record.ApprovedVendors = appendUnique(record.ApprovedVendors, vendorID)
	f.projects[projectID] = record
	return nil
}

func (f *fakeProjectStore) SetProjectWorkspaceID(_ context.Context, projectID, workspaceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setWorkspaceErr != nil {
		return f.setWorkspaceErr
	}
	record, ok := f.projects[projectID]
	if !ok {
		return storage.ErrNotFound
	}
	record.WorkspaceID = workspaceID
	f.projects[projectID] = record
	return nil
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}

type fakeWorkspaceStore struct {
	mu         sync.Mutex
	workspaces map[string]storage.WorkspaceRecord
	inserts    int

	createErr error
	updateErr error
}

func newFakeWorkspaceStore() *fakeWorkspaceStore {
	return &fakeWorkspaceStore{workspaces: make(map[string]storage.WorkspaceRecord)}
}

func (f *fakeWorkspaceStore) CreateWorkspaceIfAbsent(_ context.Context, record storage.WorkspaceRecord) (storage.WorkspaceRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return storage.WorkspaceRecord{}, false, f.createErr
	}
	for _, existing := range f.workspaces {
		if existing.ProjectID == record.ProjectID {
			return existing, false, nil
		}
	}
	f.workspaces[record.ID] = record
	f.inserts++
	return record, true, nil
}

func (f *fakeWorkspaceStore) GetWorkspace(_ context.Context, id string) (storage.WorkspaceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.workspaces[id]
	if !ok {
		return storage.WorkspaceRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeWorkspaceStore) GetWorkspaceByProject(_ context.Context, projectID string) (storage.WorkspaceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.workspaces {
		if record.ProjectID == projectID {
			return record, nil
		}
	}
	return storage.WorkspaceRecord{}, storage.ErrNotFound
}

func (f *fakeWorkspaceStore) UpdateWorkspaceIf(_ context.Context, record storage.WorkspaceRecord, expectedUpdatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.workspaces[record.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return storage.ErrConcurrentUpdate
	}
	f.workspaces[record.ID] = record
	return nil
}

type fakeDirectoryStore struct {
	mu      sync.Mutex
	entries map[string]storage.DirectoryRecord

	getErr  error
	listErr error
}

func newFakeDirectoryStore() *fakeDirectoryStore {
	return &fakeDirectoryStore{entries: make(map[string]storage.DirectoryRecord)}
}

func directoryKey(kind, id string) string {
	return kind + "/" + id
}

func (f *fakeDirectoryStore) PutEntry(_ context.Context, record storage.DirectoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[directoryKey(record.Kind, record.ID)] = record
	return nil
}

func (f *fakeDirectoryStore) GetEntry(_ context.Context, kind, id string) (storage.DirectoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return storage.DirectoryRecord{}, f.getErr
	}
	record, ok := f.entries[directoryKey(kind, id)]
	if !ok {
		return storage.DirectoryRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeDirectoryStore) ListVendors(_ context.Context, _ storage.VendorFilter, pageSize int, pageToken string) (storage.DirectoryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return storage.DirectoryPage{}, f.listErr
	}

	var vendors []storage.DirectoryRecord
	for _, record := range f.entries {
		if record.Kind == "vendor" {
			vendors = append(vendors, record)
		}
	}
	for i := 0; i < len(vendors); i++ {
		for j := i + 1; j < len(vendors); j++ {
			if vendors[j].Name < vendors[i].Name {
				vendors[i], vendors[j] = vendors[j], vendors[i]
			}
		}
	}

	start := 0
	if pageToken != "" {
		start = -1
		for i, record := range vendors {
			if record.ID == pageToken {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return storage.DirectoryPage{}, storage.ErrNotFound
		}
	}

	var page storage.DirectoryPage
	for i := start; i < len(vendors) && len(page.Entries) < pageSize; i++ {
		page.Entries = append(page.Entries, vendors[i])
	}
	if last := start + len(page.Entries); last < len(vendors) && len(page.Entries) > 0 {
		page.NextPageToken = page.Entries[len(page.Entries)-1].ID
	}
	return page, nil
}

// fakeDispatcher records every event per actor.
type fakeDispatcher struct {
	mu     sync.Mutex
	events map[string][]notify.Event
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{events: make(map[string][]notify.Event)}
}

func (f *fakeDispatcher) Notify(_ context.Context, actorID string, event notify.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[actorID] = append(f.events[actorID], event)
}

func (f *fakeDispatcher) eventsFor(actorID string) []notify.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Event(nil), f.events[actorID]...)
}

// testEnv wires a service onto in-memory fakes with a deterministic clock
// and ID sequence.
type testEnv struct {
	service    *Service
	leads      *fakeLeadStore
	projects   *fakeProjectStore
	workspaces *fakeWorkspaceStore
	directory  *fakeDirectoryStore
	dispatcher *fakeDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		leads:      newFakeLeadStore(),
		projects:   newFakeProjectStore(),
		workspaces: newFakeWorkspaceStore(),
		directory:  newFakeDirectoryStore(),
		dispatcher: newFakeDispatcher(),
	}

	base := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	var tick int64
	var idSeq int64
	var mu sync.Mutex
	env.service = NewService(Stores{
		Leads:      env.leads,
		Projects:   env.projects,
		Workspaces: env.workspaces,
		Directory:  env.directory,
	}, Config{
		Dispatcher: env.dispatcher,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
		NewID: func() (string, error) {
			mu.Lock()
			defer mu.Unlock()
			idSeq++
			return fmt.Sprintf("id-%03d", idSeq), nil
		},
	})
	return env
}

func (env *testEnv) seedProject(t *testing.T, projectID, pmID, name string) {
	t.Helper()
	err := env.projects.PutProject(context.Background(), storage.ProjectRecord{
		ID:   projectID,
		PmID: pmID,
		Name: name,
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

func (env *testEnv) seedVendor(t *testing.T, vendorID, name, email, company string) {
	t.Helper()
	err := env.directory.PutEntry(context.Background(), storage.DirectoryRecord{
		Kind:    "vendor",
		ID:      vendorID,
		Name:    name,
		Email:   email,
		Company: company,
	})
	if err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
}

func pmActor(id string) policy.Actor {
	return policy.Actor{ID: id, Role: policy.RolePM}
}

func vendorActor(id string) policy.Actor {
	return policy.Actor{ID: id, Role: policy.RoleVendor}
}
