package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/pz-stationxml/internal/domain"
	"github.com/couchcryptid/pz-stationxml/internal/observability"
)

// blockRead labels failures that happened before parsing, e.g. unreadable files.
const blockRead = "read"

// PZTransformer implements Transformer with domain.Convert, logging and
// counting the soft defaults applied to each record.
type PZTransformer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates a PZTransformer.
func NewTransformer(logger *slog.Logger, metrics *observability.Metrics) *PZTransformer {
	return &PZTransformer{
		logger:  logger,
		metrics: metrics,
	}
}

func (t *PZTransformer) Transform(ctx context.Context, raw domain.RawPZ) (domain.ChannelRecord, error) {
	rec, err := domain.Convert(raw)
	if err != nil {
		t.metrics.ParseErrors.WithLabelValues(errorBlock(err)).Inc()
		return domain.ChannelRecord{}, err
	}

	for _, kind := range rec.Defaults {
		t.metrics.SoftDefaults.WithLabelValues(kind).Inc()
		level := slog.LevelInfo
		if kind == domain.DefaultInputUnit {
			level = slog.LevelWarn
		}
		t.logger.Log(ctx, level, "default applied",
			"file", raw.Name,
			"channel", rec.SEEDID(),
			"kind", kind,
		)
	}
	return rec, nil
}

func errorBlock(err error) string {
	var pe *domain.ParseError
	if errors.As(err, &pe) {
		return string(pe.Block)
	}
	return blockRead
}
