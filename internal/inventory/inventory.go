// Package inventory merges channel records into a network → station → channel
// hierarchy, the shape StationXML expects.
package inventory

import (
	"context"
	"sync"

	"github.com/couchcryptid/pz-stationxml/internal/domain"
	"github.com/couchcryptid/pz-stationxml/internal/observability"
)

// Network groups stations under a network code.
type Network struct {
	Code     string
	Stations []*Station
}

// Station groups channels under a station code. Coordinates and site data are
// taken from the first record seen for the station.
type Station struct {
	Code      string
	Latitude  *float64
	Longitude *float64
	Elevation *float64
	SiteName  string
	Channels  []domain.ChannelRecord
}

// Inventory is a de-duplicated set of channels. Safe for concurrent use.
type Inventory struct {
	mu       sync.Mutex
	networks []*Network
	skipped  int
	metrics  *observability.Metrics
}

// New returns an empty inventory.
func New() *Inventory {
	return &Inventory{}
}

// NewWithMetrics returns an empty inventory that counts duplicate skips in
// metrics.InventorySkipped.
func NewWithMetrics(metrics *observability.Metrics) *Inventory {
	return &Inventory{metrics: metrics}
}

// Add inserts the record unless a channel with the same network, station,
// location and channel code is already present. It reports whether the
// record was added.
func (inv *Inventory) Add(rec domain.ChannelRecord) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	net := inv.network(rec.Network)
	sta := net.station(rec)
	for _, ch := range sta.Channels {
		if ch.Location == rec.Location && ch.Channel == rec.Channel {
			inv.skipped++
			if inv.metrics != nil {
				inv.metrics.InventorySkipped.Inc()
			}
			return false
		}
	}
	sta.Channels = append(sta.Channels, rec)
	return true
}

// LoadBatch adds every record, skipping channels already present.
// It implements pipeline.BatchLoader.
func (inv *Inventory) LoadBatch(_ context.Context, records []domain.ChannelRecord) error {
	for i := range records {
		inv.Add(records[i])
	}
	return nil
}

// Skipped returns how many records were dropped as duplicates.
func (inv *Inventory) Skipped() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.skipped
}

// Networks returns a snapshot of the hierarchy in insertion order.
func (inv *Inventory) Networks() []Network {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	out := make([]Network, len(inv.networks))
	for i, n := range inv.networks {
		stations := make([]*Station, len(n.Stations))
		for j, s := range n.Stations {
			cp := *s
			cp.Channels = append([]domain.ChannelRecord(nil), s.Channels...)
			stations[j] = &cp
		}
		out[i] = Network{Code: n.Code, Stations: stations}
	}
	return out
}

// Records returns every channel in network, station, insertion order.
func (inv *Inventory) Records(_ context.Context) ([]domain.ChannelRecord, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	var out []domain.ChannelRecord
	for _, n := range inv.networks {
		for _, s := range n.Stations {
			out = append(out, s.Channels...)
		}
	}
	return out, nil
}

// Len returns the number of channels.
func (inv *Inventory) Len() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	total := 0
	for _, n := range inv.networks {
		for _, s := range n.Stations {
			total += len(s.Channels)
		}
	}
	return total
}

func (inv *Inventory) network(code string) *Network {
	for _, n := range inv.networks {
		if n.Code == code {
			return n
		}
	}
	n := &Network{Code: code}
	inv.networks = append(inv.networks, n)
	return n
}

func (n *Network) station(rec domain.ChannelRecord) *Station {
	for _, s := range n.Stations {
		if s.Code == rec.Station {
			return s
		}
	}
	s := &Station{
		Code:      rec.Station,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		Elevation: rec.Elevation,
		SiteName:  rec.Description,
	}
	if s.SiteName == "" {
		s.SiteName = rec.Station
	}
	n.Stations = append(n.Stations, s)
	return s
}
