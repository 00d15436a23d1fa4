package schema

import (
	"context"
	"errors"

	"github.com/ConnorBritain/pidgeon/pkg/cache"
)

// CachedStore wraps a Store with read-through LRU caches, one per definition
// kind. Negative results (ErrNotFound) are cached too, so a schema gap does
// not hammer a slow backing store on every segment.
type CachedStore struct {
	backing Store

	triggerEvents *cache.Cache[string, lookupResult[*TriggerEventDefinition]]
	segments      *cache.Cache[string, lookupResult[*SegmentSchema]]
	dataTypes     *cache.Cache[string, lookupResult[*DataTypeDefinition]]
	tables        *cache.Cache[string, lookupResult[*TableDefinition]]
}

type lookupResult[T any] struct {
	def      T
	notFound bool
}

// CacheSizes configures per-kind cache capacities.
type CacheSizes struct {
	TriggerEvents int
	Segments      int
	DataTypes     int
	Tables        int
}

// DefaultCacheSizes returns capacities sized for a full HL7 v2.x standard.
func DefaultCacheSizes() CacheSizes {
	return CacheSizes{
		TriggerEvents: 512,
		Segments:      256,
		DataTypes:     128,
		Tables:        1024,
	}
}

// NewCachedStore wraps backing with read-through caches.
func NewCachedStore(backing Store, sizes CacheSizes) *CachedStore {
	return &CachedStore{
		backing:       backing,
		triggerEvents: cache.New[string, lookupResult[*TriggerEventDefinition]](sizes.TriggerEvents),
		segments:      cache.New[string, lookupResult[*SegmentSchema]](sizes.Segments),
		dataTypes:     cache.New[string, lookupResult[*DataTypeDefinition]](sizes.DataTypes),
		tables:        cache.New[string, lookupResult[*TableDefinition]](sizes.Tables),
	}
}

func lookup[T any](ctx context.Context, c *cache.Cache[string, lookupResult[T]], key string, fetch func(context.Context, string) (T, error)) (T, error) {
	res, err := c.GetOrLoad(key, func() (lookupResult[T], error) {
		def, err := fetch(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return lookupResult[T]{notFound: true}, nil
		}
		if err != nil {
			return lookupResult[T]{}, err
		}
		return lookupResult[T]{def: def}, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if res.notFound {
		var zero T
		return zero, ErrNotFound
	}
	return res.def, nil
}

// TriggerEvent implements TriggerEventProvider.
func (s *CachedStore) TriggerEvent(ctx context.Context, code string) (*TriggerEventDefinition, error) {
	return lookup(ctx, s.triggerEvents, code, s.backing.TriggerEvent)
}

// Segment implements SegmentProvider.
func (s *CachedStore) Segment(ctx context.Context, code string) (*SegmentSchema, error) {
	return lookup(ctx, s.segments, code, s.backing.Segment)
}

// DataType implements DataTypeProvider.
func (s *CachedStore) DataType(ctx context.Context, code string) (*DataTypeDefinition, error) {
	return lookup(ctx, s.dataTypes, code, s.backing.DataType)
}

// Table implements TableProvider.
func (s *CachedStore) Table(ctx context.Context, id string) (*TableDefinition, error) {
	return lookup(ctx, s.tables, id, s.backing.Table)
}

// Stats returns hit/miss counters for each definition cache, keyed by kind.
func (s *CachedStore) Stats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"trigger_events": s.triggerEvents.Stats(),
		"segments":       s.segments.Stats(),
		"data_types":     s.dataTypes.Stats(),
		"tables":         s.tables.Stats(),
	}
}
