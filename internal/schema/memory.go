package schema

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store. Population and reads are guarded by a
// RWMutex, so a loaded store is safe for concurrent compositions.
type MemoryStore struct {
	mu            sync.RWMutex
	triggerEvents map[string]*TriggerEventDefinition
	segments      map[string]*SegmentSchema
	dataTypes     map[string]*DataTypeDefinition
	tables        map[string]*TableDefinition
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		triggerEvents: make(map[string]*TriggerEventDefinition),
		segments:      make(map[string]*SegmentSchema),
		dataTypes:     make(map[string]*DataTypeDefinition),
		tables:        make(map[string]*TableDefinition),
	}
}

// AddTriggerEvent registers a trigger event definition.
func (s *MemoryStore) AddTriggerEvent(def *TriggerEventDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggerEvents[def.Code] = def
}

// AddSegment registers a segment schema. Returns the schema's validation
// error, if any; invalid schemas are not stored.
func (s *MemoryStore) AddSegment(def *SegmentSchema) error {
	if err := def.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[def.Code] = def
	return nil
}

// AddDataType registers a data type definition.
func (s *MemoryStore) AddDataType(def *DataTypeDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataTypes[def.Code] = def
}

// AddTable registers a code table.
func (s *MemoryStore) AddTable(def *TableDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[def.ID] = def
}

// TriggerEvent implements TriggerEventProvider.
func (s *MemoryStore) TriggerEvent(_ context.Context, code string) (*TriggerEventDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.triggerEvents[code]
	if !ok {
		return nil, fmt.Errorf("trigger event %s: %w", code, ErrNotFound)
	}
	return def, nil
}

// Segment implements SegmentProvider.
func (s *MemoryStore) Segment(_ context.Context, code string) (*SegmentSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.segments[code]
	if !ok {
		return nil, fmt.Errorf("segment %s: %w", code, ErrNotFound)
	}
	return def, nil
}

// DataType implements DataTypeProvider.
func (s *MemoryStore) DataType(_ context.Context, code string) (*DataTypeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.dataTypes[code]
	if !ok {
		return nil, fmt.Errorf("data type %s: %w", code, ErrNotFound)
	}
	return def, nil
}

// Table implements TableProvider.
func (s *MemoryStore) Table(_ context.Context, id string) (*TableDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.tables[id]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", id, ErrNotFound)
	}
	return def, nil
}
