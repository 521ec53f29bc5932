package api

import (
	"context"
	"net/http"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/event_repository"
	"github.com/RedHatInsights/sync-connector/internal/middlewares"
	"github.com/RedHatInsights/sync-connector/internal/provider"
	"github.com/RedHatInsights/sync-connector/internal/record_repository"

	"github.com/google/uuid"
)

const (
	TOKEN_HEADER_CLIENT_NAME = middlewares.PSKClientIdHeader
	TOKEN_HEADER_PSK_NAME    = middlewares.PSKHeader
	URL_BASE_PATH            = "/api/sync-connector/v1"
	TEST_CLIENT_ID           = "test_client_1"
	TEST_PSK                 = "12345"
	MOCK_PROVIDER_NAME       = "mock"
)

func testConfig() *config.Config {
	cfg := config.GetConfig()
	cfg.ServiceToServiceCredentials = map[string]interface{}{TEST_CLIENT_ID: TEST_PSK}
	cfg.WebhookMaxBodyBytes = 1048576
	return cfg
}

func addPSKHeaders(req *http.Request) {
	req.Header.Add(TOKEN_HEADER_CLIENT_NAME, TEST_CLIENT_ID)
	req.Header.Add(TOKEN_HEADER_PSK_NAME, TEST_PSK)
}

var mockGraph = provider.MustDependencyGraph(
	provider.ResourceDefinition{Type: "customers", Core: true},
	provider.ResourceDefinition{Type: "payment_methods", ParentType: "customers"},
)

type MockProvider struct {
	verifyErr error
	parseErr  error
	event     *domain.WebhookEvent
}

func (p *MockProvider) Name() domain.ProviderName                   { return MOCK_PROVIDER_NAME }
func (p *MockProvider) Graph() *provider.DependencyGraph            { return mockGraph }
func (p *MockProvider) Fetcher() provider.Fetcher                   { return nil }
func (p *MockProvider) EventRoutes() map[string]provider.EventRoute { return nil }

func (p *MockProvider) VerifySignature(header http.Header, body []byte) error {
	return p.verifyErr
}

func (p *MockProvider) ParseEvent(header http.Header, body []byte) (*domain.WebhookEvent, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	return p.event, nil
}

type MockSyncManager struct {
	syncErr     error
	requested   []domain.ResourceType
	singleFound bool
	singleErr   error
	singleRef   domain.ObjectRef
	syncing     bool
	onSync      func()
	syncCtxErr  error
}

func (m *MockSyncManager) Sync(ctx context.Context, requested []domain.ResourceType) (*domain.SyncRun, error) {
	m.requested = requested
	if m.onSync != nil {
		m.onSync()
	}
	m.syncCtxErr = ctx.Err()

	if m.syncErr != nil {
		return nil, m.syncErr
	}

	for _, rt := range requested {
		if _, ok := mockGraph.Definition(rt); !ok {
			return nil, provider.UnknownResourceTypeError{ResourceType: rt}
		}
	}

	now := time.Now().UTC()
	return &domain.SyncRun{
		ID:             uuid.New(),
		Provider:       MOCK_PROVIDER_NAME,
		RequestedTypes: requested,
		Stats:          map[domain.ResourceType]int{"customers": 3},
		Errors:         []string{},
		StartedAt:      now,
		FinishedAt:     now,
		Success:        true,
	}, nil
}

func (m *MockSyncManager) SyncSingleResource(ctx context.Context, ref domain.ObjectRef) (bool, error) {
	m.singleRef = ref
	return m.singleFound, m.singleErr
}

func (m *MockSyncManager) IsSyncing() bool {
	return m.syncing
}

type MockRecordStore struct {
	record_repository.RecordStore
	counts map[domain.ResourceType]int64
	err    error
}

func (m *MockRecordStore) CountByType(ctx context.Context, providerName domain.ProviderName) (map[domain.ResourceType]int64, error) {
	return m.counts, m.err
}

type MockSyncRunStore struct {
	latest *domain.SyncRun
}

func (m *MockSyncRunStore) Save(ctx context.Context, run *domain.SyncRun) error {
	m.latest = run
	return nil
}

func (m *MockSyncRunStore) Latest(ctx context.Context, providerName domain.ProviderName) (*domain.SyncRun, error) {
	return m.latest, nil
}

type MockWebhookProcessor struct {
	reconcileErr error
	reconciled   []*domain.WebhookEvent
	replayed     map[string]*domain.WebhookEvent
	replayErr    error
}

func (m *MockWebhookProcessor) Reconcile(ctx context.Context, event *domain.WebhookEvent) error {
	m.reconciled = append(m.reconciled, event)
	return m.reconcileErr
}

func (m *MockWebhookProcessor) Replay(ctx context.Context, eventID string) (*domain.WebhookEvent, error) {
	if m.replayErr != nil {
		return nil, m.replayErr
	}

	event, ok := m.replayed[eventID]
	if !ok {
		return nil, event_repository.NotFoundError{EventID: eventID}
	}
	return event, nil
}

type MockEventStore struct {
	event_repository.EventStore
	events     []domain.WebhookEvent
	listErr    error
	lastFilter event_repository.EventFilter
}

func (m *MockEventStore) List(ctx context.Context, filter event_repository.EventFilter, offset int, limit int) ([]domain.WebhookEvent, int64, error) {
	m.lastFilter = filter

	if m.listErr != nil {
		return nil, 0, m.listErr
	}

	page := []domain.WebhookEvent{}
	for i := offset; i < len(m.events) && len(page) < limit; i++ {
		page = append(page, m.events[i])
	}

	return page, int64(len(m.events)), nil
}
