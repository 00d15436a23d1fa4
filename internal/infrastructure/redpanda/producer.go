// Package redpanda publishes composed messages to a Kafka-compatible feed
// with franz-go. Batch runs lean on the client's batching, so the producer is
// tuned for throughput rather than per-record latency.
package redpanda

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ConnorBritain/pidgeon/internal/observability/metrics"
)

// ProducerConfig holds producer settings.
type ProducerConfig struct {
	Brokers []string
	// BatchMaxBytes caps one produce batch.
	BatchMaxBytes int32
	// Linger is how long the client waits to fill a batch.
	Linger time.Duration
	// MaxBufferedRecords bounds the client-side buffer.
	MaxBufferedRecords int
	// Compression codec: lz4, snappy, gzip, zstd.
	Compression string
	MaxRetries  int
}

// DefaultProducerConfig returns settings tuned for batch generation runs.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:            []string{"localhost:9092"},
		BatchMaxBytes:      4 * 1024 * 1024,
		Linger:             25 * time.Millisecond,
		MaxBufferedRecords: 100_000,
		Compression:        "lz4",
		MaxRetries:         3,
	}
}

// Producer publishes composed messages to the feed.
type Producer struct {
	client  *kgo.Client
	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics

	mu        sync.Mutex
	published int64
	failed    int64
}

// NewProducer creates a feed producer.
func NewProducer(cfg ProducerConfig, logger *zap.Logger) (*Producer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchMaxBytes(cfg.BatchMaxBytes),
		kgo.ProducerLinger(cfg.Linger),
		kgo.MaxBufferedRecords(cfg.MaxBufferedRecords),
		kgo.RecordRetries(cfg.MaxRetries),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	switch cfg.Compression {
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "gzip":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Producer{
		client: client,
		logger: logger,
		tracer: otel.Tracer("feed-producer"),
	}, nil
}

// WithMetrics attaches Prometheus metrics.
func (p *Producer) WithMetrics(m *metrics.Metrics) *Producer {
	p.metrics = m
	return p
}

// ComposedMessage is one feed record: the serialized message plus the
// metadata consumers key and filter on.
type ComposedMessage struct {
	TriggerEvent string
	ControlID    string
	Seed         int64
	Text         string
}

// Publish sends one composed message to the feed topic, keyed by control ID
// so repeated runs of the same seed land on the same partition.
func (p *Producer) Publish(ctx context.Context, msg ComposedMessage) error {
	ctx, span := p.tracer.Start(ctx, "feed_publish",
		trace.WithAttributes(
			attribute.String("trigger_event", msg.TriggerEvent),
			attribute.String("control_id", msg.ControlID),
		))
	defer span.End()

	record := &kgo.Record{
		Topic: TopicComposedMessages,
		Key:   []byte(msg.ControlID),
		Value: []byte(msg.Text),
		Headers: []kgo.RecordHeader{
			{Key: "trigger_event", Value: []byte(msg.TriggerEvent)},
			{Key: "seed", Value: []byte(fmt.Sprintf("%d", msg.Seed))},
		},
	}
	injectTraceHeaders(ctx, record)

	var wg sync.WaitGroup
	var produceErr error
	wg.Add(1)
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		defer wg.Done()
		if err != nil {
			produceErr = err
			p.count(&p.failed)
			span.RecordError(err)
			p.logger.Error("feed publish failed",
				zap.String("trigger_event", msg.TriggerEvent),
				zap.Error(err))
			return
		}
		p.count(&p.published)
		if p.metrics != nil {
			p.metrics.FeedPublished.Inc()
		}
	})
	wg.Wait()
	return produceErr
}

// PublishAsync fires a record without waiting for acknowledgment. Batch runs
// use it and Flush at the end.
func (p *Producer) PublishAsync(ctx context.Context, msg ComposedMessage) {
	record := &kgo.Record{
		Topic: TopicComposedMessages,
		Key:   []byte(msg.ControlID),
		Value: []byte(msg.Text),
		Headers: []kgo.RecordHeader{
			{Key: "trigger_event", Value: []byte(msg.TriggerEvent)},
			{Key: "seed", Value: []byte(fmt.Sprintf("%d", msg.Seed))},
		},
	}
	injectTraceHeaders(ctx, record)

	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.count(&p.failed)
			p.logger.Error("async feed publish failed", zap.Error(err))
			return
		}
		p.count(&p.published)
		if p.metrics != nil {
			p.metrics.FeedPublished.Inc()
		}
	})
}

// Flush blocks until all buffered records are sent.
func (p *Producer) Flush(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Close flushes and closes the client.
func (p *Producer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("flush on close", zap.Error(err))
	}
	p.client.Close()
}

// Stats reports publish counts since start.
func (p *Producer) Stats() (published, failed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published, p.failed
}

func (p *Producer) count(field *int64) {
	p.mu.Lock()
	*field++
	p.mu.Unlock()
}

// injectTraceHeaders carries the current span context into record headers so
// feed consumers can continue the trace.
func injectTraceHeaders(ctx context.Context, record *kgo.Record) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return
	}
	record.Headers = append(record.Headers, kgo.RecordHeader{
		Key:   "traceparent",
		Value: []byte(fmt.Sprintf("00-%s-%s-%02x", sc.TraceID(), sc.SpanID(), sc.TraceFlags())),
	})
}
