package schema

import (
	"context"
	"errors"
)

// ErrNotFound is returned by providers when no definition exists for a key.
var ErrNotFound = errors.New("schema definition not found")

// TriggerEventProvider supplies trigger event definitions by code.
type TriggerEventProvider interface {
	TriggerEvent(ctx context.Context, code string) (*TriggerEventDefinition, error)
}

// SegmentProvider supplies segment schemas by segment code.
type SegmentProvider interface {
	Segment(ctx context.Context, code string) (*SegmentSchema, error)
}

// DataTypeProvider supplies data type definitions by code.
type DataTypeProvider interface {
	DataType(ctx context.Context, code string) (*DataTypeDefinition, error)
}

// TableProvider supplies code tables by table id.
type TableProvider interface {
	Table(ctx context.Context, id string) (*TableDefinition, error)
}

// Store bundles the four definition providers the engine composes against.
// Implementations must be safe for concurrent readers.
type Store interface {
	TriggerEventProvider
	SegmentProvider
	DataTypeProvider
	TableProvider
}

// WithTableProvider returns a Store that serves tables from tables and
// everything else from base. Used to graft the remote terminology provider
// onto a local definition store.
func WithTableProvider(base Store, tables TableProvider) Store {
	return &tableOverlay{Store: base, tables: tables}
}

type tableOverlay struct {
	Store
	tables TableProvider
}

func (s *tableOverlay) Table(ctx context.Context, id string) (*TableDefinition, error) {
	return s.tables.Table(ctx, id)
}
