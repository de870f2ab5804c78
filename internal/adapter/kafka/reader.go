package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/pz-stationxml/internal/config"
	"github.com/couchcryptid/pz-stationxml/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// HeaderFileName carries the original PZ file name on source messages.
const HeaderFileName = "file_name"

// Reader consumes raw PZ file contents from a Kafka topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	logger        *slog.Logger
	flushInterval time.Duration
}

// NewReader creates a Kafka consumer-group reader for the configured source topic.
// Offsets are committed explicitly by the pipeline after a record is loaded.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, logger: logger, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch blocks for the first message, then collects more until the
// batch is full or the flush interval elapses.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawPZ, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	batch := make([]domain.RawPZ, 0, batchSize)
	batch = append(batch, r.mapMessageToRawPZ(first))

	flushCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(flushCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			r.logger.Warn("fetch message failed, flushing partial batch", "error", err, "batch_size", len(batch))
			break
		}
		batch = append(batch, r.mapMessageToRawPZ(msg))
	}
	return batch, nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func (r *Reader) mapMessageToRawPZ(msg kafkago.Message) domain.RawPZ {
	raw := mapMessageToRawPZ(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

// mapMessageToRawPZ converts a Kafka message into a RawPZ. The file name is
// taken from the file_name header, then the key, then the message coordinates.
func mapMessageToRawPZ(msg kafkago.Message) domain.RawPZ {
	name := ""
	for _, h := range msg.Headers {
		if h.Key == HeaderFileName {
			name = string(h.Value)
			break
		}
	}
	if name == "" {
		name = string(msg.Key)
	}
	if name == "" {
		name = fmt.Sprintf("%s/%d@%d", msg.Topic, msg.Partition, msg.Offset)
	}
	return domain.RawPZ{
		Name:      name,
		Text:      string(msg.Value),
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
