package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/pz-stationxml/internal/domain"
)

// MultiLoader sends each batch to every loader in order and stops at the
// first failure.
type MultiLoader []BatchLoader

func (m MultiLoader) LoadBatch(ctx context.Context, records []domain.ChannelRecord) error {
	for i, l := range m {
		if err := l.LoadBatch(ctx, records); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}
