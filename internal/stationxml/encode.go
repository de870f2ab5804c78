package stationxml

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/pz-stationxml/internal/domain"
	"github.com/couchcryptid/pz-stationxml/internal/inventory"
	"github.com/jonboulle/clockwork"
)

// Header is the document-level metadata written above the networks.
type Header struct {
	Source    string
	Sender    string
	Module    string
	ModuleURI string
	// NetworkDescriptions maps a network code to its Description element.
	NetworkDescriptions map[string]string
}

// Encoder builds StationXML documents from an inventory snapshot.
type Encoder struct {
	header Header
	clock  clockwork.Clock
}

// NewEncoder returns an Encoder. A nil clock uses the real clock.
func NewEncoder(h Header, clock clockwork.Clock) *Encoder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Encoder{header: h, clock: clock}
}

// Document converts networks into the XML tree.
func (e *Encoder) Document(networks []inventory.Network) Document {
	doc := Document{
		Xmlns:         Namespace,
		SchemaVersion: SchemaVersion,
		Source:        e.header.Source,
		Sender:        e.header.Sender,
		Module:        e.header.Module,
		ModuleURI:     e.header.ModuleURI,
		Created:       e.clock.Now().UTC().Truncate(time.Second),
		Networks:      make([]Network, 0, len(networks)),
	}
	for _, n := range networks {
		doc.Networks = append(doc.Networks, e.network(n))
	}
	return doc
}

// Encode writes an indented document with the XML declaration.
func (e *Encoder) Encode(w io.Writer, networks []inventory.Network) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(e.Document(networks)); err != nil {
		return fmt.Errorf("encode stationxml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode stationxml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile encodes to path through a temp file in the same directory so
// readers never see a partial document.
func (e *Encoder) WriteFile(path string, networks []inventory.Network) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".stationxml-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	bw := bufio.NewWriter(tmp)
	if err := e.Encode(bw, networks); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

func (e *Encoder) network(n inventory.Network) Network {
	out := Network{
		Code:        n.Code,
		Description: e.header.NetworkDescriptions[n.Code],
		Stations:    make([]Station, 0, len(n.Stations)),
	}
	for _, s := range n.Stations {
		st := station(s)
		out.StartDate = earliest(out.StartDate, st.StartDate)
		out.Stations = append(out.Stations, st)
	}
	return out
}

func station(s *inventory.Station) Station {
	out := Station{
		Code:      s.Code,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Elevation: s.Elevation,
		Site:      Site{Name: s.SiteName},
		Channels:  make([]Channel, 0, len(s.Channels)),
	}
	for i := range s.Channels {
		rec := &s.Channels[i]
		out.StartDate = earliest(out.StartDate, rec.Start)
		out.EndDate = latest(out.EndDate, rec.End)
		out.CreationDate = earliest(out.CreationDate, rec.Created)
		out.Channels = append(out.Channels, channel(rec))
	}
	return out
}

func channel(rec *domain.ChannelRecord) Channel {
	ch := Channel{
		Code:         rec.Channel,
		LocationCode: rec.Location,
		StartDate:    rec.Start,
		EndDate:      rec.End,
		Latitude:     rec.Latitude,
		Longitude:    rec.Longitude,
		Elevation:    rec.Elevation,
		Depth:        rec.Depth,
		Azimuth:      rec.Orientation.Azimuth,
		Dip:          rec.Orientation.Dip,
		SampleRate:   rec.SampleRate,
		Response:     response(rec.Response),
	}
	if rec.Comment != "" {
		ch.Comments = []Comment{{Value: rec.Comment}}
	}
	if rec.InstrumentType != "" {
		ch.Sensor = &Equipment{Type: rec.InstrumentType}
	}
	return ch
}

func response(r domain.Response) Response {
	st := r.Stage
	return Response{
		InstrumentSensitivity: InstrumentSensitivity{
			Value:       r.Sensitivity.Value,
			Frequency:   r.Sensitivity.Frequency,
			InputUnits:  Units{Name: r.Sensitivity.InputUnits},
			OutputUnits: Units{Name: r.Sensitivity.OutputUnits},
		},
		Stages: []Stage{{
			Number: st.Sequence,
			PolesZeros: PolesZeros{
				InputUnits:             Units{Name: st.InputUnits},
				OutputUnits:            Units{Name: st.OutputUnits},
				PzTransferFunctionType: st.TransferFunctionType,
				NormalizationFactor:    st.NormalizationFactor,
				NormalizationFrequency: st.NormalizationFrequency,
				Zeros:                  roots(st.Zeros),
				Poles:                  roots(st.Poles),
			},
			StageGain: Gain{Value: st.Gain, Frequency: st.GainFrequency},
		}},
	}
}

func roots(cs []domain.Coefficient) []PoleZero {
	out := make([]PoleZero, len(cs))
	for i, c := range cs {
		out[i] = PoleZero{
			Number:    i,
			Real:      FloatNoUnit{Value: c.Real, PlusError: nonZero(c.PlusError), MinusError: nonZero(c.MinusError)},
			Imaginary: FloatNoUnit{Value: c.Imag},
		}
	}
	return out
}

func nonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func earliest(cur, t *time.Time) *time.Time {
	if t == nil || (cur != nil && !t.Before(*cur)) {
		return cur
	}
	return t
}

func latest(cur, t *time.Time) *time.Time {
	if t == nil || (cur != nil && !t.After(*cur)) {
		return cur
	}
	return t
}
