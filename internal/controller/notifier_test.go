package controller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/domain"
	"github.com/RedHatInsights/sync-connector/internal/provider"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	kafka "github.com/segmentio/kafka-go"
)

type channelWriter struct {
	messages chan kafka.Message
}

func (w *channelWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		w.messages <- m
	}
	return nil
}

func receive(t *testing.T, messages chan kafka.Message) kafka.Message {
	select {
	case m := <-messages:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a kafka message")
	}
	return kafka.Message{}
}

func TestKafkaNotifierObjectChanged(t *testing.T) {
	writer := &channelWriter{messages: make(chan kafka.Message, 1)}
	notifier := &KafkaNotifier{KafkaWriter: writer}

	ref := domain.ObjectRef{Type: "customers", ID: "cus_1"}
	notifier.ObjectChanged(context.TODO(), "stripe", ref, provider.DeleteAction)

	msg := receive(t, writer.messages)
	if string(msg.Key) != "stripe:customers:cus_1" {
		t.Fatalf("unexpected key %s", msg.Key)
	}

	var body notificationMessage
	if err := json.Unmarshal(msg.Value, &body); err != nil {
		t.Fatal(err)
	}

	if body.Kind != "object_changed" || body.Action != "delete" {
		t.Fatalf("unexpected notification %+v", body)
	}

	if diff := cmp.Diff(&ref, body.Object); diff != "" {
		t.Fatalf("object mismatch (-want +got):\n%s", diff)
	}
}

func TestKafkaNotifierSyncRunCompleted(t *testing.T) {
	writer := &channelWriter{messages: make(chan kafka.Message, 1)}
	notifier := &KafkaNotifier{KafkaWriter: writer}

	run := &domain.SyncRun{ID: uuid.New(), Provider: "shopify", Stats: map[domain.ResourceType]int{"orders": 2}, Success: true}

	// a cancelled request must not drop the notification
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	notifier.SyncRunCompleted(ctx, run)

	msg := receive(t, writer.messages)
	if string(msg.Key) != "shopify:sync_run:"+run.ID.String() {
		t.Fatalf("unexpected key %s", msg.Key)
	}

	var body notificationMessage
	if err := json.Unmarshal(msg.Value, &body); err != nil {
		t.Fatal(err)
	}

	if body.SyncRun == nil || body.SyncRun.Stats["orders"] != 2 {
		t.Fatalf("unexpected sync run payload %+v", body.SyncRun)
	}
}

func TestNewNotifierWithoutBrokers(t *testing.T) {
	notifier, err := NewNotifier(&config.Config{})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := notifier.(*NoopNotifier); !ok {
		t.Fatalf("expected a noop notifier, got %T", notifier)
	}
}
