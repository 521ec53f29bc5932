package shopify

import (
	"net/http"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/provider"
)

const Name domain.ProviderName = "shopify"

type Provider struct {
	client        *Client
	webhookSecret string
	now           func() time.Time
}

func NewProvider(client *Client, webhookSecret string) *Provider {
	return &Provider{
		client:        client,
		webhookSecret: webhookSecret,
		now:           time.Now,
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
	return verifySignature(header.Get(hmacHeader), body, p.webhookSecret)
}

func (p *Provider) ParseEvent(header http.Header, body []byte) (*domain.WebhookEvent, error) {
	return parseEvent(header, body, p.now())
}
