package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/provider"
)

const (
	hmacHeader       = "X-Shopify-Hmac-Sha256"
	webhookIDHeader  = "X-Shopify-Webhook-Id"
	eventIDHeader    = "X-Shopify-Event-Id"
	topicHeader      = "X-Shopify-Topic"
	shopDomainHeader = "X-Shopify-Shop-Domain"
)

// topicObjectTypes maps the resource part of a topic to the stored type
var topicObjectTypes = map[string]domain.ResourceType{
	"locations":          Locations,
	"products":           Products,
	"customers":          Customers,
	"orders":             Orders,
	"order_transactions": Transactions,
	"fulfillments":       Fulfillments,
	"refunds":            Refunds,
	"draft_orders":       DraftOrders,
}

func verifySignature(signature string, body []byte, secret string) error {
	if secret == "" || signature == "" {
		return provider.ErrInvalidSignature
	}

	given, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return provider.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	if !hmac.Equal(given, mac.Sum(nil)) {
		return provider.ErrInvalidSignature
	}

	return nil
}

// parseEvent builds an event from the delivery headers.  The body is the
// object itself, there is no envelope.
func parseEvent(header http.Header, body []byte, receivedAt time.Time) (*domain.WebhookEvent, error) {
	eventID := header.Get(webhookIDHeader)
	if eventID == "" {
		eventID = header.Get(eventIDHeader)
	}
	topic := header.Get(topicHeader)

	if eventID == "" || topic == "" {
		return nil, fmt.Errorf("%w: missing webhook id or topic header", provider.ErrMalformedEvent)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrMalformedEvent, err)
	}

	event := &domain.WebhookEvent{
		ID:            eventID,
		Provider:      Name,
		Type:          topic,
		SourceAccount: header.Get(shopDomainHeader),
		ObjectID:      idField(fields["id"]),
		Payload:       json.RawMessage(body),
		ReceivedAt:    receivedAt.UTC(),
	}

	if route, ok := eventRoutes[topic]; ok {
		event.ObjectType = route.ResourceType
	} else if prefix, _, found := strings.Cut(topic, "/"); found {
		event.ObjectType = topicObjectTypes[prefix]
	}

	if spec, ok := resources[event.ObjectType]; ok && spec.parentField != "" {
		event.ObjectParentID = idField(fields[spec.parentField])
	}

	return event, nil
}
