package controller

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/provider/stripe"
	"github.com/RedHatInsights/sync-connector/internal/ratelimit"

	"github.com/go-playground/assert/v2"
)

func TestUpcomingInvoiceIsAcknowledgedAsUnhandled(t *testing.T) {
	client := stripe.NewClient("http://127.0.0.1:0", "sk_test", http.DefaultClient, ratelimit.NewLimiter("stripe", 0, 1))
	p := stripe.NewProvider(client, "whsec_test", 5*time.Minute)

	records := newFakeRecordStore()
	events := newFakeEventStore()
	orchestrator := NewSyncOrchestrator(p, records, &fakeSyncRunStore{}, &recordingNotifier{}, 1)

	reconciler, err := NewWebhookReconciler(p, events, records, orchestrator, &recordingNotifier{}, &NoopPayloadArchiver{}, 16)
	if err != nil {
		t.Fatal("unable to build reconciler: ", err)
	}

	body := []byte(`{"id":"evt_up","type":"invoice.upcoming","data":{"object":{"object":"invoice","customer":"cus_1"}}}`)
	event, err := p.ParseEvent(http.Header{}, body)
	if err != nil {
		t.Fatal("unable to parse event: ", err)
	}

	assert.Equal(t, reconciler.Reconcile(context.TODO(), event), nil)

	stored, _ := events.Get(context.TODO(), "evt_up")
	assert.Equal(t, stored.Processed, true)
	assert.Equal(t, stored.Error, (*string)(nil))
	assert.Equal(t, stored.RetryCount, 0)
	assert.Equal(t, len(records.upserts), 0)
}
