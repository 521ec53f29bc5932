package registry

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/platform/utils/tls_utils"
	"github.com/RedHatInsights/sync-connector/internal/provider"
	"github.com/RedHatInsights/sync-connector/internal/provider/shopify"
	"github.com/RedHatInsights/sync-connector/internal/provider/stripe"
	"github.com/RedHatInsights/sync-connector/internal/ratelimit"
)

type UnknownProviderError struct {
	Name string
}

func (e UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.Name)
}

// NewProvider builds the provider selected by configuration.  Each provider
// gets its own limiter so that one process never exceeds the remote quota.
func NewProvider(cfg *config.Config) (provider.Provider, error) {
	httpClient, err := newHttpClient(cfg)
	if err != nil {
		return nil, err
	}

	switch domain.ProviderName(cfg.Provider) {
	case stripe.Name:
		if cfg.StripeApiKey == "" {
			return nil, fmt.Errorf("%s must be set for the stripe provider", config.STRIPE_API_KEY)
		}
		limiter := ratelimit.NewLimiter(stripe.Name.String(), cfg.StripeRateLimit, cfg.StripeRateBurst)
		client := stripe.NewClient(cfg.StripeApiBaseUrl, cfg.StripeApiKey, httpClient, limiter)
		return stripe.NewProvider(client, cfg.StripeWebhookSecret, cfg.StripeWebhookTolerance), nil

	case shopify.Name:
		if cfg.ShopifyShopDomain == "" || cfg.ShopifyAccessToken == "" {
			return nil, fmt.Errorf("%s and %s must be set for the shopify provider", config.SHOPIFY_SHOP_DOMAIN, config.SHOPIFY_ACCESS_TOKEN)
		}
		limiter := ratelimit.NewLimiter(shopify.Name.String(), cfg.ShopifyRateLimit, cfg.ShopifyRateBurst)
		client := shopify.NewClient(shopify.AdminURL(cfg.ShopifyShopDomain, cfg.ShopifyApiVersion), cfg.ShopifyAccessToken, httpClient, limiter)
		return shopify.NewProvider(client, cfg.ShopifyWebhookSecret), nil
	}

	return nil, UnknownProviderError{Name: cfg.Provider}
}

func newHttpClient(cfg *config.Config) (*http.Client, error) {
	client := &http.Client{Timeout: cfg.ProviderHttpTimeout}

	if cfg.ProviderCACert == "" {
		return client, nil
	}

	tlsConfig, err := tls_utils.NewTlsConfig(
		tls_utils.WithMinVersion(tls.VersionTLS12),
		tls_utils.WithCACerts(cfg.ProviderCACert))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", config.PROVIDER_CA_CERT, err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	client.Transport = transport

	return client, nil
}
