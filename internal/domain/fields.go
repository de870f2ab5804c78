package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldKey identifies a recognized PZ header field.
type FieldKey string

const (
	FieldNetwork        FieldKey = "net"
	FieldStation        FieldKey = "sta"
	FieldLocation       FieldKey = "loc"
	FieldChannel        FieldKey = "cha"
	FieldCreated        FieldKey = "created"
	FieldStart          FieldKey = "start_time"
	FieldEnd            FieldKey = "end_time"
	FieldDescription    FieldKey = "description"
	FieldLatitude       FieldKey = "lat"
	FieldLongitude      FieldKey = "lon"
	FieldElevation      FieldKey = "elv"
	FieldDepth          FieldKey = "dep"
	FieldDip            FieldKey = "dip"
	FieldAzimuth        FieldKey = "az"
	FieldSampleRate     FieldKey = "sample_rate"
	FieldInputUnit      FieldKey = "in_unit"
	FieldOutputUnit     FieldKey = "out_unit"
	FieldInstrumentType FieldKey = "inst_type"
	FieldInstrumentGain FieldKey = "inst_gain"
	FieldComment        FieldKey = "comment"
	FieldSensitivity    FieldKey = "sensitivity"
	FieldA0             FieldKey = "A0"
)

// headerLabels maps the fixed-width label text (everything before the first
// colon) to its field. Lookup is exact: padding is part of the label.
var headerLabels = map[string]FieldKey{
	"* NETWORK   (KNETWK)": FieldNetwork,
	"* STATION    (KSTNM)": FieldStation,
	"* LOCATION   (KHOLE)": FieldLocation,
	"* CHANNEL   (KCMPNM)": FieldChannel,
	"* CREATED           ": FieldCreated,
	"* START             ": FieldStart,
	"* END               ": FieldEnd,
	"* DESCRIPTION       ": FieldDescription,
	"* LATITUDE          ": FieldLatitude,
	"* LONGITUDE         ": FieldLongitude,
	"* ELEVATION         ": FieldElevation,
	"* DEPTH             ": FieldDepth,
	"* DIP               ": FieldDip,
	"* AZIMUTH           ": FieldAzimuth,
	"* SAMPLE RATE       ": FieldSampleRate,
	"* INPUT UNIT        ": FieldInputUnit,
	"* OUTPUT UNIT       ": FieldOutputUnit,
	"* INSTTYPE          ": FieldInstrumentType,
	"* INSTGAIN          ": FieldInstrumentGain,
	"* COMMENT           ": FieldComment,
	"* SENSITIVITY       ": FieldSensitivity,
	"* A0                ": FieldA0,
}

// Label returns the exact header label for a field.
func Label(key FieldKey) (string, bool) {
	for label, k := range headerLabels {
		if k == key {
			return label, true
		}
	}
	return "", false
}

// Field is one extracted header value.
type Field struct {
	Key   FieldKey
	Value string
}

// Fields is the ordered set of header values found in a PZ file.
// The zero value is an empty mapping.
type Fields struct {
	entries []Field
	index   map[FieldKey]int
}

// FieldState reports the outcome of a typed field access.
type FieldState int

const (
	// FieldAbsent means the label was missing or its value was blank.
	FieldAbsent FieldState = iota
	// FieldInvalid means a value was present but did not parse.
	FieldInvalid
	// FieldPresent means the value was present and parsed.
	FieldPresent
)

func (s FieldState) String() string {
	switch s {
	case FieldAbsent:
		return "absent"
	case FieldInvalid:
		return "invalid"
	case FieldPresent:
		return "present"
	default:
		return "unknown"
	}
}

// ExtractFields scans PZ text for recognized header lines. Each line is split
// at its first colon; the left side must equal a known label exactly and the
// trimmed right side (later colons included) becomes the value. Lines that do
// not match are skipped.
func ExtractFields(text string) Fields {
	var f Fields
	for _, line := range strings.Split(text, "\n") {
		label, value, _ := strings.Cut(line, ":")
		key, ok := headerLabels[label]
		if !ok {
			continue
		}
		f = f.with(key, strings.TrimSpace(value))
	}
	return f
}

// NewFields builds a mapping from pairs in order. A repeated key keeps its
// first position and takes the last value, as ExtractFields does.
func NewFields(pairs ...Field) Fields {
	var f Fields
	for _, p := range pairs {
		f = f.with(p.Key, p.Value)
	}
	return f
}

func (f Fields) with(key FieldKey, value string) Fields {
	entries := make([]Field, len(f.entries), len(f.entries)+1)
	copy(entries, f.entries)
	index := make(map[FieldKey]int, len(f.index)+1)
	for k, i := range f.index {
		index[k] = i
	}

	if i, ok := index[key]; ok {
		entries[i].Value = value
	} else {
		index[key] = len(entries)
		entries = append(entries, Field{Key: key, Value: value})
	}
	return Fields{entries: entries, index: index}
}

// Len returns the number of extracted fields.
func (f Fields) Len() int { return len(f.entries) }

// All returns the fields in file order.
func (f Fields) All() []Field {
	out := make([]Field, len(f.entries))
	copy(out, f.entries)
	return out
}

// Has reports whether the label appeared in the file, even with a blank value.
func (f Fields) Has(key FieldKey) bool {
	_, ok := f.index[key]
	return ok
}

// Lookup returns the raw value and whether it is present and non-blank.
func (f Fields) Lookup(key FieldKey) (string, bool) {
	i, ok := f.index[key]
	if !ok || f.entries[i].Value == "" {
		return "", false
	}
	return f.entries[i].Value, true
}

// Value returns the raw value, or "" when absent.
func (f Fields) Value(key FieldKey) string {
	v, _ := f.Lookup(key)
	return v
}

// Float parses the value as float64.
func (f Fields) Float(key FieldKey) (float64, FieldState) {
	v, ok := f.Lookup(key)
	if !ok {
		return 0, FieldAbsent
	}
	return parseFloat(v)
}

// LeadingFloat parses the first whitespace-delimited token of the value, so
// "1.000000e+03 (V/M/S)" yields 1000.
func (f Fields) LeadingFloat(key FieldKey) (float64, FieldState) {
	v, ok := f.Lookup(key)
	if !ok {
		return 0, FieldAbsent
	}
	tokens := strings.Fields(v)
	if len(tokens) == 0 {
		return 0, FieldAbsent
	}
	return parseFloat(tokens[0])
}

// OptionalFloat returns a pointer to the parsed value, or nil when the field
// is absent or invalid.
func (f Fields) OptionalFloat(key FieldKey) *float64 {
	v, state := f.Float(key)
	if state != FieldPresent {
		return nil
	}
	return &v
}

func parseFloat(s string) (float64, FieldState) {
	v, err := parseFinite(strings.TrimSpace(s))
	if err != nil {
		return 0, FieldInvalid
	}
	return v, FieldPresent
}

// parseFinite is strconv.ParseFloat without NaN and infinities, which cannot
// be serialized downstream.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}
