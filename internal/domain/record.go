package domain

import (
	"context"
	"strings"
	"time"
)

// Fixed response conventions. The PZ format carries no frequency metadata.
const (
	TransferFunctionLaplace = "LAPLACE (RADIANS/SECOND)"
	ReferenceFrequencyHz    = 1.0

	UnitVelocity     = "M/S"
	UnitAcceleration = "M/S**2"
)

// Names of soft defaults recorded on ChannelRecord.Defaults.
const (
	DefaultDepth       = "depth"
	DefaultOrientation = "orientation"
	DefaultInputUnit   = "input_unit"
)

// RawPZ is the unparsed text of one PZ file plus where it came from.
type RawPZ struct {
	Name      string // file name or message key, used in error messages
	Text      string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error

	// Err is set when the source could not read the file. Convert returns it.
	Err error
}

// Coefficient is one pole or zero of a transfer function.
type Coefficient struct {
	Real       float64 `json:"real"`
	Imag       float64 `json:"imag"`
	PlusError  float64 `json:"plus_error,omitempty"`
	MinusError float64 `json:"minus_error,omitempty"`
}

// TransferFunction is the numeric content of the POLES, ZEROS and CONSTANT blocks.
type TransferFunction struct {
	Poles    []Coefficient `json:"poles"`
	Zeros    []Coefficient `json:"zeros"`
	Constant float64       `json:"constant"`
}

// Orientation of a sensor component in degrees.
type Orientation struct {
	Azimuth float64 `json:"azimuth"`
	Dip     float64 `json:"dip"`
}

// PolesZerosStage is the single response stage of a channel.
type PolesZerosStage struct {
	Sequence               int           `json:"sequence"`
	Gain                   float64       `json:"gain"`
	GainFrequency          float64       `json:"gain_frequency"`
	InputUnits             string        `json:"input_units"`
	OutputUnits            string        `json:"output_units"`
	TransferFunctionType   string        `json:"transfer_function_type"`
	NormalizationFactor    float64       `json:"normalization_factor"`
	NormalizationFrequency float64       `json:"normalization_frequency"`
	Poles                  []Coefficient `json:"poles"`
	Zeros                  []Coefficient `json:"zeros"`
}

// Sensitivity is the overall gain of the instrument chain.
type Sensitivity struct {
	Value       float64 `json:"value"`
	Frequency   float64 `json:"frequency"`
	InputUnits  string  `json:"input_units"`
	OutputUnits string  `json:"output_units"`
}

// Response pairs the stage with the instrument sensitivity.
type Response struct {
	Stage       PolesZerosStage `json:"stage"`
	Sensitivity Sensitivity     `json:"sensitivity"`
}

// ChannelRecord is the normalized result of converting one PZ file.
// It is built once by Convert and not modified afterwards.
type ChannelRecord struct {
	Source string `json:"source,omitempty"`

	Network  string `json:"network"`
	Station  string `json:"station"`
	Location string `json:"location"`
	Channel  string `json:"channel"`

	Created *time.Time `json:"created,omitempty"`
	Start   *time.Time `json:"start,omitempty"`
	End     *time.Time `json:"end,omitempty"`

	Description    string `json:"description,omitempty"`
	InstrumentType string `json:"instrument_type,omitempty"`
	Comment        string `json:"comment,omitempty"`

	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Elevation  *float64 `json:"elevation,omitempty"`
	Depth      float64  `json:"depth"`
	SampleRate *float64 `json:"sample_rate,omitempty"`

	Orientation Orientation `json:"orientation"`
	Units       Units       `json:"units"`
	Response    Response    `json:"response"`

	Defaults    []string  `json:"defaults_applied,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Units are the physical input and output units of the channel.
type Units struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// SEEDID returns the NET.STA.LOC.CHA identifier of the channel.
func (r ChannelRecord) SEEDID() string {
	return strings.Join([]string{r.Network, r.Station, r.Location, r.Channel}, ".")
}
