// Package postgres provides PostgreSQL infrastructure components: the
// composed-message archive that batch runs write through.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ArchivedMessage is one row of the composed_messages table.
type ArchivedMessage struct {
	ID           int64
	ControlID    string
	TriggerEvent string
	Seed         int64
	Version      string
	Text         string
	CreatedAt    time.Time
}

// MessageLog archives composed messages for later inspection and replay.
type MessageLog struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

// NewMessageLog creates a message log over pool.
func NewMessageLog(pool *pgxpool.Pool, logger *zap.Logger) *MessageLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageLog{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("message-log"),
	}
}

// Save archives one message.
func (l *MessageLog) Save(ctx context.Context, msg *ArchivedMessage) error {
	ctx, span := l.tracer.Start(ctx, "message_log_save",
		trace.WithAttributes(attribute.String("trigger_event", msg.TriggerEvent)))
	defer span.End()

	query := `
		INSERT INTO composed_messages (control_id, trigger_event, seed, version, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := l.pool.QueryRow(ctx, query,
		msg.ControlID, msg.TriggerEvent, msg.Seed, msg.Version, msg.Text,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("archive message %s: %w", msg.ControlID, err)
	}
	return nil
}

// SaveBatch archives a batch run's messages in one round trip.
func (l *MessageLog) SaveBatch(ctx context.Context, msgs []*ArchivedMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	ctx, span := l.tracer.Start(ctx, "message_log_save_batch",
		trace.WithAttributes(attribute.Int("batch_size", len(msgs))))
	defer span.End()

	batch := &pgx.Batch{}
	query := `
		INSERT INTO composed_messages (control_id, trigger_event, seed, version, message)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, msg := range msgs {
		batch.Queue(query, msg.ControlID, msg.TriggerEvent, msg.Seed, msg.Version, msg.Text)
	}

	results := l.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range msgs {
		if _, err := results.Exec(); err != nil {
			span.RecordError(err)
			return fmt.Errorf("archive batch: %w", err)
		}
	}

	l.logger.Debug("batch archived", zap.Int("messages", len(msgs)))
	return nil
}

// Recent returns the newest archived messages, most recent first.
func (l *MessageLog) Recent(ctx context.Context, limit int) ([]*ArchivedMessage, error) {
	query := `
		SELECT id, control_id, trigger_event, seed, version, message, created_at
		FROM composed_messages
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := l.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	var msgs []*ArchivedMessage
	for rows.Next() {
		var m ArchivedMessage
		if err := rows.Scan(&m.ID, &m.ControlID, &m.TriggerEvent, &m.Seed,
			&m.Version, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// CountByTriggerEvent returns archive counts grouped by trigger event.
func (l *MessageLog) CountByTriggerEvent(ctx context.Context) (map[string]int64, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT trigger_event, COUNT(*) FROM composed_messages GROUP BY trigger_event`)
	if err != nil {
		return nil, fmt.Errorf("count by trigger event: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var code string
		var n int64
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[code] = n
	}
	return counts, rows.Err()
}
