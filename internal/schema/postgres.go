package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore reads schema definitions from the scraped-standard tables.
// It is read-only; population is owned by the scraper import job.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger

	// Standard and Version scope every lookup, matching the
	// (standard, version, code) identity of definitions.
	Standard string
	Version  string
}

// NewPostgresStore creates a store bound to one standard version.
func NewPostgresStore(pool *pgxpool.Pool, standard, version string, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger, Standard: standard, Version: version}
}

// TriggerEvent implements TriggerEventProvider.
func (s *PostgresStore) TriggerEvent(ctx context.Context, code string) (*TriggerEventDefinition, error) {
	def := &TriggerEventDefinition{Code: code, Standard: s.Standard, Version: s.Version}

	row := s.pool.QueryRow(ctx, `
		SELECT description
		FROM trigger_events
		WHERE standard = $1 AND version = $2 AND code = $3
	`, s.Standard, s.Version, code)
	if err := row.Scan(&def.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trigger event %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("query trigger event %s: %w", code, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT segment_code, description, optionality, repeatability, is_group, nesting_level
		FROM trigger_event_segments
		WHERE standard = $1 AND version = $2 AND trigger_event_code = $3
		ORDER BY position ASC
	`, s.Standard, s.Version, code)
	if err != nil {
		return nil, fmt.Errorf("query segment rules for %s: %w", code, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r SegmentRule
		var opt, rep string
		if err := rows.Scan(&r.SegmentCode, &r.Description, &opt, &rep, &r.IsGroup, &r.NestingLevel); err != nil {
			return nil, err
		}
		r.Optionality = ParseOptionality(opt)
		r.Repeatability = Repeatability(rep)
		def.Rules = append(def.Rules, r)
	}
	return def, rows.Err()
}

// Segment implements SegmentProvider.
func (s *PostgresStore) Segment(ctx context.Context, code string) (*SegmentSchema, error) {
	def := &SegmentSchema{Code: code}

	row := s.pool.QueryRow(ctx, `
		SELECT description
		FROM segments
		WHERE standard = $1 AND version = $2 AND code = $3
	`, s.Standard, s.Version, code)
	if err := row.Scan(&def.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("segment %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("query segment %s: %w", code, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT position, name, description, data_type, optionality, repeatability, max_length, COALESCE(table_id, '')
		FROM segment_fields
		WHERE standard = $1 AND version = $2 AND segment_code = $3
		ORDER BY position ASC
	`, s.Standard, s.Version, code)
	if err != nil {
		return nil, fmt.Errorf("query fields for %s: %w", code, err)
	}
	defer rows.Close()

	for rows.Next() {
		var f FieldDefinition
		var opt, rep string
		if err := rows.Scan(&f.Position, &f.Name, &f.Description, &f.DataTypeCode, &opt, &rep, &f.MaxLength, &f.TableID); err != nil {
			return nil, err
		}
		f.Optionality = ParseOptionality(opt)
		f.Repeatability = Repeatability(rep)
		def.Fields = append(def.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return def, nil
}

// DataType implements DataTypeProvider.
func (s *PostgresStore) DataType(ctx context.Context, code string) (*DataTypeDefinition, error) {
	def := &DataTypeDefinition{Code: code}

	row := s.pool.QueryRow(ctx, `
		SELECT description
		FROM data_types
		WHERE standard = $1 AND version = $2 AND code = $3
	`, s.Standard, s.Version, code)
	if err := row.Scan(&def.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("data type %s: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("query data type %s: %w", code, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT name, data_type, optionality, COALESCE(table_id, '')
		FROM data_type_components
		WHERE standard = $1 AND version = $2 AND data_type_code = $3
		ORDER BY position ASC
	`, s.Standard, s.Version, code)
	if err != nil {
		return nil, fmt.Errorf("query components for %s: %w", code, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c ComponentDefinition
		var opt string
		if err := rows.Scan(&c.Name, &c.DataTypeCode, &opt, &c.TableID); err != nil {
			return nil, err
		}
		c.Optionality = ParseOptionality(opt)
		def.Components = append(def.Components, c)
	}
	return def, rows.Err()
}

// Table implements TableProvider.
func (s *PostgresStore) Table(ctx context.Context, id string) (*TableDefinition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, description
		FROM table_entries
		WHERE standard = $1 AND version = $2 AND table_id = $3
		ORDER BY position ASC
	`, s.Standard, s.Version, id)
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", id, err)
	}
	defer rows.Close()

	def := &TableDefinition{ID: id}
	for rows.Next() {
		var e TableEntry
		if err := rows.Scan(&e.Code, &e.Description); err != nil {
			return nil, err
		}
		def.Entries = append(def.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(def.Entries) == 0 {
		return nil, fmt.Errorf("table %s: %w", id, ErrNotFound)
	}
	return def, nil
}
