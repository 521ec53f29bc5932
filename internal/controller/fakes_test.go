package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/event_repository"
	"github.com/RedHatInsights/sync-connector/internal/provider"
	"github.com/RedHatInsights/sync-connector/internal/record_repository"
)

const fakeProviderName domain.ProviderName = "fake"

type fakeProvider struct {
	graph   *provider.DependencyGraph
	fetcher *fakeFetcher
	routes  map[string]provider.EventRoute
}

func (p *fakeProvider) Name() domain.ProviderName                   { return fakeProviderName }
func (p *fakeProvider) Graph() *provider.DependencyGraph            { return p.graph }
func (p *fakeProvider) Fetcher() provider.Fetcher                   { return p.fetcher }
func (p *fakeProvider) EventRoutes() map[string]provider.EventRoute { return p.routes }
func (p *fakeProvider) VerifySignature(http.Header, []byte) error   { return nil }
func (p *fakeProvider) ParseEvent(http.Header, []byte) (*domain.WebhookEvent, error) {
	return nil, nil
}

var fakeGraph = provider.MustDependencyGraph(
	provider.ResourceDefinition{Type: "products", Core: true},
	provider.ResourceDefinition{Type: "prices", Core: true},
	provider.ResourceDefinition{Type: "customers", Core: true},
	provider.ResourceDefinition{Type: "payment_methods", ParentType: "customers"},
)

var fakeRoutes = map[string]provider.EventRoute{
	"customer.updated":        {Action: provider.RefetchAction, ResourceType: "customers"},
	"customer.deleted":        {Action: provider.DeleteAction, ResourceType: "customers"},
	"payment_method.attached": {Action: provider.RefetchAction, ResourceType: "payment_methods"},
}

func newFakeProvider(fetcher *fakeFetcher) *fakeProvider {
	return &fakeProvider{graph: fakeGraph, fetcher: fetcher, routes: fakeRoutes}
}

func rec(rt domain.ResourceType, id string, data string) domain.ExternalRecord {
	return domain.ExternalRecord{Type: rt, ID: id, Data: json.RawMessage(data), FetchedAt: time.Now()}
}

// fakeFetcher serves canned pages keyed by "type" or "type/parent"
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string][][]domain.ExternalRecord
	errs    map[string]error
	panics  map[string]bool
	objects map[domain.ObjectRef]domain.ExternalRecord
	calls   []string

	started chan struct{}
	release chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:   make(map[string][][]domain.ExternalRecord),
		errs:    make(map[string]error),
		panics:  make(map[string]bool),
		objects: make(map[domain.ObjectRef]domain.ExternalRecord),
	}
}

func fetchKey(rt domain.ResourceType, parentID string) string {
	if parentID == "" {
		return rt.String()
	}
	return rt.String() + "/" + parentID
}

func (f *fakeFetcher) ListPages(ctx context.Context, rt domain.ResourceType, parentID string, page provider.PageFunc) error {
	key := fetchKey(rt, parentID)

	f.mu.Lock()
	f.calls = append(f.calls, "list:"+key)
	pages := f.pages[key]
	err := f.errs[key]
	shouldPanic := f.panics[key]
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}

	if shouldPanic {
		panic("fetcher exploded")
	}

	for _, p := range pages {
		if err := page(p); err != nil {
			return err
		}
	}

	return err
}

func (f *fakeFetcher) GetOne(ctx context.Context, ref domain.ObjectRef) (*domain.ExternalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "get:"+fetchKey(ref.Type, ref.ID))

	if err := f.errs["get:"+ref.ID]; err != nil {
		return nil, err
	}

	record, ok := f.objects[domain.ObjectRef{Type: ref.Type, ID: ref.ID}]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return &record, nil
}

func (f *fakeFetcher) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type storedRow struct {
	record  domain.ExternalRecord
	deleted bool
}

type fakeRecordStore struct {
	mu          sync.Mutex
	rows        map[string]*storedRow
	upserts     []domain.ExternalRecord
	upsertErr   map[domain.ResourceType]error
	listIDsErr  error
	deleteCalls []domain.ObjectRef
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		rows:      make(map[string]*storedRow),
		upsertErr: make(map[domain.ResourceType]error),
	}
}

func rowKey(rt domain.ResourceType, id string) string {
	return rt.String() + ":" + id
}

func (s *fakeRecordStore) UpsertMany(ctx context.Context, p domain.ProviderName, records []domain.ExternalRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if err := s.upsertErr[r.Type]; err != nil {
			return 0, err
		}
	}

	for _, r := range records {
		s.rows[rowKey(r.Type, r.ID)] = &storedRow{record: r}
		s.upserts = append(s.upserts, r)
	}
	return len(records), nil
}

func (s *fakeRecordStore) MarkDeleted(ctx context.Context, p domain.ProviderName, ref domain.ObjectRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteCalls = append(s.deleteCalls, ref)
	if row, ok := s.rows[rowKey(ref.Type, ref.ID)]; ok {
		row.deleted = true
	}
	return nil
}

func (s *fakeRecordStore) CountByType(ctx context.Context, p domain.ProviderName) (map[domain.ResourceType]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[domain.ResourceType]int64)
	for _, row := range s.rows {
		if !row.deleted {
			counts[row.record.Type]++
		}
	}
	return counts, nil
}

func (s *fakeRecordStore) ListIDs(ctx context.Context, p domain.ProviderName, rt domain.ResourceType) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listIDsErr != nil {
		return nil, s.listIDsErr
	}

	ids := make([]string, 0)
	for _, row := range s.rows {
		if row.record.Type == rt && !row.deleted {
			ids = append(ids, row.record.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fakeRecordStore) Get(ctx context.Context, p domain.ProviderName, ref domain.ObjectRef) (*record_repository.StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[rowKey(ref.Type, ref.ID)]
	if !ok {
		return nil, record_repository.NotFoundError{Ref: ref}
	}

	stored := &record_repository.StoredRecord{ExternalRecord: row.record, Provider: p}
	if row.deleted {
		now := time.Now()
		stored.DeletedAt = &now
	}
	return stored, nil
}

func (s *fakeRecordStore) upsertOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := make([]string, 0, len(s.upserts))
	for _, r := range s.upserts {
		order = append(order, rowKey(r.Type, r.ID))
	}
	return order
}

type fakeSyncRunStore struct {
	mu   sync.Mutex
	runs []*domain.SyncRun
	err  error
}

func (s *fakeSyncRunStore) Save(ctx context.Context, run *domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.runs = append(s.runs, run)
	return nil
}

func (s *fakeSyncRunStore) Latest(ctx context.Context, p domain.ProviderName) (*domain.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.runs) == 0 {
		return nil, nil
	}
	return s.runs[len(s.runs)-1], nil
}

type fakeEventStore struct {
	mu        sync.Mutex
	events    map[string]*domain.WebhookEvent
	recordErr error
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: make(map[string]*domain.WebhookEvent)}
}

func (s *fakeEventStore) Record(ctx context.Context, event *domain.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recordErr != nil {
		return s.recordErr
	}

	if existing, ok := s.events[event.ID]; ok {
		existing.Payload = event.Payload
		existing.ReceivedAt = event.ReceivedAt
		return nil
	}

	copied := *event
	s.events[event.ID] = &copied
	return nil
}

func (s *fakeEventStore) MarkProcessed(ctx context.Context, eventID string, handlerErr *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return event_repository.NotFoundError{EventID: eventID}
	}

	now := time.Now()
	event.Processed = true
	event.ProcessedAt = &now
	event.Error = handlerErr
	if handlerErr != nil {
		event.RetryCount++
	}
	return nil
}

func (s *fakeEventStore) Get(ctx context.Context, eventID string) (*domain.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, event_repository.NotFoundError{EventID: eventID}
	}
	copied := *event
	return &copied, nil
}

func (s *fakeEventStore) List(ctx context.Context, filter event_repository.EventFilter, offset int, limit int) ([]domain.WebhookEvent, int64, error) {
	return nil, 0, fmt.Errorf("not implemented")
}

func (s *fakeEventStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type notification struct {
	kind   string
	ref    domain.ObjectRef
	action provider.EventAction
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []notification
}

func (n *recordingNotifier) SyncRunCompleted(ctx context.Context, run *domain.SyncRun) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification{kind: "sync_run"})
}

func (n *recordingNotifier) ObjectChanged(ctx context.Context, p domain.ProviderName, ref domain.ObjectRef, action provider.EventAction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification{kind: "object", ref: ref, action: action})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.notifications...)
}
