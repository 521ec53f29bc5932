package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/RedHatInsights/sync-connector/internal/domain"
)

var (
	ErrNotFound         = errors.New("remote object not found")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
)

// PageFunc receives one page of records.  The next page is not requested
// until the callback returns.
type PageFunc func(page []domain.ExternalRecord) error

// Fetcher is the read side of a provider API
type Fetcher interface {
	// ListPages walks every page of a resource listing, following the
	// provider's pagination cursor until it is exhausted.  parentID is only
	// used by dependent resource types.
	ListPages(ctx context.Context, resourceType domain.ResourceType, parentID string, page PageFunc) error

	// GetOne returns ErrNotFound when the object is absent or deleted upstream
	GetOne(ctx context.Context, ref domain.ObjectRef) (*domain.ExternalRecord, error)
}

type EventAction int

const (
	RefetchAction EventAction = iota
	DeleteAction
)

func (a EventAction) String() string {
	switch a {
	case RefetchAction:
		return "refetch"
	case DeleteAction:
		return "delete"
	default:
		return "unknown"
	}
}

// EventRoute declares what a webhook event type means for local storage
type EventRoute struct {
	Action       EventAction
	ResourceType domain.ResourceType
}

type Provider interface {
	Name() domain.ProviderName
	Graph() *DependencyGraph
	Fetcher() Fetcher
	EventRoutes() map[string]EventRoute

	// VerifySignature checks the authenticity of a webhook delivery
	VerifySignature(header http.Header, body []byte) error

	// ParseEvent turns a verified webhook delivery into an event row
	ParseEvent(header http.Header, body []byte) (*domain.WebhookEvent, error)
}

// APIError is returned for any non-success response that is not a plain 404
type APIError struct {
	Provider   domain.ProviderName
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api returned %d: %s", e.Provider, e.StatusCode, e.Message)
}
