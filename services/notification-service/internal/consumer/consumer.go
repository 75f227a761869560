package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers string
	GroupID string
	Topics  []string
	// Attempts bounds handler retries per message before it is skipped.
	Attempts int
	Backoff  time.Duration
}

type Consumer struct {
	reader   Reader
	logger   *slog.Logger
	handler  Handler
	attempts int
	backoff  time.Duration
}

func New(logger *slog.Logger, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return NewWithReader(logger, reader, cfg, handler)
}

func NewWithReader(logger *slog.Logger, reader Reader, cfg Config, handler Handler) *Consumer {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Consumer{reader: reader, logger: logger, handler: handler, attempts: cfg.Attempts, backoff: cfg.Backoff}
}

// Run fetches until ctx ends. Offsets are committed after the handler
// succeeds or runs out of attempts.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			if !sleep(ctx, c.backoff) {
				return
			}
			continue
		}

		c.handle(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	ctxSpan, span := kafkax.StartConsumeSpan(ctx, msg)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	for attempt := 1; attempt <= c.attempts; attempt++ {
		err := c.handler(ctxSpan, msg)
		if err == nil {
			return
		}
		span.RecordError(err)
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID, "attempt", attempt)
		if attempt == c.attempts || !sleep(ctx, c.backoff*time.Duration(attempt)) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
