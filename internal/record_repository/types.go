package record_repository

import (
	"context"
	"fmt"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/domain"
)

type NotFoundError struct {
	Ref domain.ObjectRef
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("no stored record for %s %s", e.Ref.Type, e.Ref.ID)
}

// StoredRecord is a mirrored record together with its bookkeeping columns
type StoredRecord struct {
	domain.ExternalRecord
	Provider  domain.ProviderName
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r StoredRecord) IsDeleted() bool {
	return r.DeletedAt != nil
}

type RecordStore interface {
	// UpsertMany inserts or overwrites records keyed by (provider, type, id)
	// and returns how many were written.  Overwriting clears a soft delete.
	UpsertMany(ctx context.Context, provider domain.ProviderName, records []domain.ExternalRecord) (int, error)
	MarkDeleted(ctx context.Context, provider domain.ProviderName, ref domain.ObjectRef) error
	CountByType(ctx context.Context, provider domain.ProviderName) (map[domain.ResourceType]int64, error)
	ListIDs(ctx context.Context, provider domain.ProviderName, resourceType domain.ResourceType) ([]string, error)
	Get(ctx context.Context, provider domain.ProviderName, ref domain.ObjectRef) (*StoredRecord, error)
}
