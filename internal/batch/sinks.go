package batch

import (
	"context"
	"io"
	"sync"

	"github.com/ConnorBritain/pidgeon/internal/infrastructure/postgres"
	"github.com/ConnorBritain/pidgeon/internal/infrastructure/redpanda"
)

// FeedSink publishes messages to the Redpanda feed.
type FeedSink struct {
	Producer *redpanda.Producer
}

// Emit implements Sink.
func (s *FeedSink) Emit(ctx context.Context, msg Message) error {
	return s.Producer.Publish(ctx, redpanda.ComposedMessage{
		TriggerEvent: msg.TriggerEvent,
		ControlID:    msg.ControlID,
		Seed:         msg.Seed,
		Text:         msg.Text,
	})
}

// ArchiveSink writes messages to the Postgres archive.
type ArchiveSink struct {
	Log     *postgres.MessageLog
	Version string
}

// Emit implements Sink.
func (s *ArchiveSink) Emit(ctx context.Context, msg Message) error {
	return s.Log.Save(ctx, &postgres.ArchivedMessage{
		ControlID:    msg.ControlID,
		TriggerEvent: msg.TriggerEvent,
		Seed:         msg.Seed,
		Version:      s.Version,
		Text:         msg.Text,
	})
}

// WriterSink streams messages to w, each terminated by a blank line so the
// CR-delimited segments of consecutive messages stay separable.
type WriterSink struct {
	W io.Writer

	mu sync.Mutex
}

// Emit implements Sink.
func (s *WriterSink) Emit(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.W, msg.Text); err != nil {
		return err
	}
	_, err := io.WriteString(s.W, "\n\n")
	return err
}
