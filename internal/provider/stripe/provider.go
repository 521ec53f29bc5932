package stripe

import (
	"net/http"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/provider"
)

const Name domain.ProviderName = "stripe"

type Provider struct {
	client           *Client
	webhookSecret    string
	webhookTolerance time.Duration
	now              func() time.Time
}

func NewProvider(client *Client, webhookSecret string, webhookTolerance time.Duration) *Provider {
	return &Provider{
		client:           client,
		webhookSecret:    webhookSecret,
		webhookTolerance: webhookTolerance,
		now:              time.Now,
	}
}

func (p *Provider) Name() domain.ProviderName {
	return Name
}

func (p *Provider) Graph() *provider.DependencyGraph {
	return Graph
}

func (p *Provider) Fetcher() provider.Fetcher {
	return p.client
}

func (p *Provider) EventRoutes() map[string]provider.EventRoute {
	return eventRoutes
}

func (p *Provider) VerifySignature(header http.Header, body []byte) error {
	return verifySignature(header.Get(signatureHeader), body, p.webhookSecret, p.webhookTolerance, p.now())
}

func (p *Provider) ParseEvent(header http.Header, body []byte) (*domain.WebhookEvent, error) {
	return parseEvent(body, p.now())
}
