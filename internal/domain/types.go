package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ProviderName string

func (p ProviderName) String() string {
	return string(p)
}

// ResourceType names a syncable class of remote objects (customers, invoices, ...)
type ResourceType string

func (rt ResourceType) String() string {
	return string(rt)
}

// ObjectRef identifies a single remote object.  ParentID is only populated for
// resource types that are addressed through their parent.
type ObjectRef struct {
	Type     ResourceType `json:"type"`
	ID       string       `json:"id"`
	ParentID string       `json:"parent_id,omitempty"`
}

// ExternalRecord is a snapshot of one remote object taken at fetch time
type ExternalRecord struct {
	Type      ResourceType
	ID        string
	ParentID  string
	Data      json.RawMessage
	FetchedAt time.Time
}

func (r ExternalRecord) Ref() ObjectRef {
	return ObjectRef{Type: r.Type, ID: r.ID, ParentID: r.ParentID}
}

type SyncRun struct {
	ID             uuid.UUID            `json:"id"`
	Provider       ProviderName         `json:"provider"`
	RequestedTypes []ResourceType       `json:"requested_types"`
	Stats          map[ResourceType]int `json:"stats"`
	Errors         []string             `json:"errors"`
	StartedAt      time.Time            `json:"started_at"`
	FinishedAt     time.Time            `json:"finished_at"`
	DurationMs     int64                `json:"duration_ms"`
	Success        bool                 `json:"success"`
}

type WebhookEvent struct {
	ID             string          `json:"id"`
	Provider       ProviderName    `json:"provider"`
	Type           string          `json:"type"`
	SourceAccount  string          `json:"source_account,omitempty"`
	ObjectType     ResourceType    `json:"object_type,omitempty"`
	ObjectID       string          `json:"object_id,omitempty"`
	ObjectParentID string          `json:"object_parent_id,omitempty"`
	Payload        json.RawMessage `json:"-"`
	Processed      bool            `json:"processed"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	Error          *string         `json:"error"`
	RetryCount     int             `json:"retry_count"`
	ReceivedAt     time.Time       `json:"received_at"`
}

func (e WebhookEvent) ObjectRef() ObjectRef {
	return ObjectRef{Type: e.ObjectType, ID: e.ObjectID, ParentID: e.ObjectParentID}
}
