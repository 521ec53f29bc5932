package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/provider"
)

const signatureHeader = "Stripe-Signature"

type eventEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Account string `json:"account"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// verifySignature checks a "t=<unix>,v1=<hex>" header.  The signed payload is
// the timestamp and the raw body joined by a dot.  Any one matching v1 entry
// is enough, which lets the secret be rolled without dropping deliveries.
func verifySignature(header string, body []byte, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" || header == "" {
		return provider.ErrInvalidSignature
	}

	var timestamp string
	var signatures [][]byte
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			if sig, err := hex.DecodeString(value); err == nil {
				signatures = append(signatures, sig)
			}
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return provider.ErrInvalidSignature
	}

	seconds, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return provider.ErrInvalidSignature
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(seconds, 0))
		if age > tolerance || age < -tolerance {
			return provider.ErrInvalidSignature
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}

	return provider.ErrInvalidSignature
}

func parseEvent(body []byte, receivedAt time.Time) (*domain.WebhookEvent, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrMalformedEvent, err)
	}

	if envelope.ID == "" || envelope.Type == "" {
		return nil, fmt.Errorf("%w: missing event id or type", provider.ErrMalformedEvent)
	}

	event := &domain.WebhookEvent{
		ID:            envelope.ID,
		Provider:      Name,
		Type:          envelope.Type,
		SourceAccount: envelope.Account,
		Payload:       json.RawMessage(body),
		ReceivedAt:    receivedAt.UTC(),
	}

	if len(envelope.Data.Object) == 0 {
		return event, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(envelope.Data.Object, &fields); err != nil {
		return nil, fmt.Errorf("%w: data.object is not an object", provider.ErrMalformedEvent)
	}

	event.ObjectID = stringField(fields["id"])

	if route, ok := eventRoutes[envelope.Type]; ok {
		event.ObjectType = route.ResourceType
	} else if rt, ok := resourceTypeForObject(stringField(fields["object"])); ok {
		event.ObjectType = rt
	}

	if spec, ok := resources[event.ObjectType]; ok && spec.parentField != "" {
		event.ObjectParentID = stringField(fields[spec.parentField])
	}

	return event, nil
}
