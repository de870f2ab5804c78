package stationxml

import (
	"context"
	"fmt"
	"io"

	"github.com/couchcryptid/pz-stationxml/internal/domain"
	"github.com/couchcryptid/pz-stationxml/internal/inventory"
)

// RecordSource lists stored channel records.
type RecordSource interface {
	Records(ctx context.Context) ([]domain.ChannelRecord, error)
}

// Publisher renders whatever a RecordSource holds at request time.
type Publisher struct {
	enc *Encoder
	src RecordSource
}

func NewPublisher(enc *Encoder, src RecordSource) *Publisher {
	return &Publisher{enc: enc, src: src}
}

// WriteStationXML merges the current records into an inventory and encodes it.
func (p *Publisher) WriteStationXML(ctx context.Context, w io.Writer) error {
	networks, err := p.networks(ctx)
	if err != nil {
		return err
	}
	return p.enc.Encode(w, networks)
}

// WriteFile is WriteStationXML to a file, replaced atomically.
func (p *Publisher) WriteFile(ctx context.Context, path string) error {
	networks, err := p.networks(ctx)
	if err != nil {
		return err
	}
	return p.enc.WriteFile(path, networks)
}

func (p *Publisher) networks(ctx context.Context) ([]inventory.Network, error) {
	recs, err := p.src.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	inv := inventory.New()
	if err := inv.LoadBatch(ctx, recs); err != nil {
		return nil, err
	}
	return inv.Networks(), nil
}
