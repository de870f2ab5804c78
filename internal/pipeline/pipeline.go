package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/pz-stationxml/internal/domain"
	"github.com/couchcryptid/pz-stationxml/internal/observability"
)

// BatchExtractor reads up to batchSize raw PZ files from the source.
// Finite sources return io.EOF once exhausted, optionally together with a
// final partial batch.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawPZ, error)
}

// Transformer converts a raw PZ file into a channel record.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawPZ) (domain.ChannelRecord, error)
}

// BatchLoader writes multiple channel records to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, records []domain.ChannelRecord) error
}

// Stats counts files seen by a pipeline run.
type Stats struct {
	Consumed int64
	Loaded   int64
	Failed   int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStrict makes the first file that fails to convert abort Run with its error.
func WithStrict(strict bool) Option {
	return func(p *Pipeline) { p.strict = strict }
}

// WithStopOnLoadError makes Run return load errors instead of backing off and
// retrying. Used for one-shot runs where there is nobody to retry for.
func WithStopOnLoadError() Option {
	return func(p *Pipeline) { p.stopOnLoadError = true }
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int

	strict          bool
	stopOnLoadError bool

	consumed atomic.Int64
	loaded   atomic.Int64
	failed   atomic.Int64
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil if the pipeline has loaded at least one record,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any records yet")
	}
	return nil
}

// Stats returns the counters accumulated so far.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Consumed: p.consumed.Load(),
		Loaded:   p.loaded.Load(),
		Failed:   p.failed.Load(),
	}
}

// Run executes the batch loop until the context is cancelled or the
// extractor reports io.EOF. It returns an error only in strict or
// stop-on-load-error mode.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		more, err := p.processBatch(ctx, &backoff, maxBackoff)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) (bool, error) {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	exhausted := errors.Is(err, io.EOF)
	if err != nil && !exhausted {
		if ctx.Err() != nil {
			return false, nil
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff), nil
	}

	if len(rawBatch) == 0 {
		if exhausted {
			p.logger.Info("source exhausted", "consumed", p.consumed.Load())
			return false, nil
		}
		return ctx.Err() == nil, nil
	}

	p.consumed.Add(int64(len(rawBatch)))
	p.metrics.FilesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	loaded, ok, err := p.transformAndLoad(ctx, rawBatch, backoff, maxBackoff)
	if err != nil || !ok {
		return false, err
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	if exhausted {
		p.logger.Info("source exhausted", "consumed", p.consumed.Load())
		return false, nil
	}
	return true, nil
}

// transformAndLoad converts each file in the batch, loads the successes,
// and commits offsets. Returns the number of loaded records and false if the
// pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawPZ, backoff *time.Duration, maxBackoff time.Duration) (int, bool, error) {
	outBatch := make([]domain.ChannelRecord, 0, len(rawBatch))
	successfulRaws := make([]domain.RawPZ, 0, len(rawBatch))

	for _, raw := range rawBatch {
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.failed.Add(1)
			if p.strict {
				return 0, false, err
			}
			p.logger.Warn("conversion failed, skipping file",
				"error", err,
				"file", raw.Name,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.commitOffset(ctx, raw)
			continue
		}
		outBatch = append(outBatch, out)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(outBatch) == 0 {
		return 0, true, nil
	}

	if err := p.loader.LoadBatch(ctx, outBatch); err != nil {
		if p.stopOnLoadError {
			return 0, false, fmt.Errorf("load batch: %w", err)
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(outBatch))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff), nil
	}

	p.loaded.Add(int64(len(outBatch)))
	p.metrics.RecordsProduced.Add(float64(len(outBatch)))

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return len(outBatch), true, nil
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawPZ) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
