package domain

// ResolveInputUnit returns the input unit, coercing anything other than
// velocity or acceleration to velocity. coerced reports that the fallback
// was used.
func ResolveInputUnit(f Fields) (unit string, coerced bool) {
	unit = f.Value(FieldInputUnit)
	switch unit {
	case UnitVelocity, UnitAcceleration:
		return unit, false
	default:
		return UnitVelocity, true
	}
}

// ResolveDepth returns the depth in meters, or 0 with defaulted=true when the
// field is absent or not numeric.
func ResolveDepth(f Fields) (depth float64, defaulted bool) {
	v, state := f.Float(FieldDepth)
	if state != FieldPresent {
		return 0, true
	}
	return v, false
}

// BuildRecord assembles the channel record from header fields, a resolved
// orientation, and the parsed transfer function.
func BuildRecord(f Fields, o Orientation, tf TransferFunction) (ChannelRecord, error) {
	a0, state := f.Float(FieldA0)
	if state != FieldPresent {
		return ChannelRecord{}, newParseError(BlockHeader, 0, f.Value(FieldA0),
			"A0 normalization factor is "+state.String(), nil)
	}

	sens, state := f.LeadingFloat(FieldSensitivity)
	if state != FieldPresent {
		return ChannelRecord{}, newParseError(BlockHeader, 0, f.Value(FieldSensitivity),
			"sensitivity is "+state.String(), nil)
	}

	var defaults []string

	inputUnit, coerced := ResolveInputUnit(f)
	if coerced {
		defaults = append(defaults, DefaultInputUnit)
	}
	outputUnit := f.Value(FieldOutputUnit)

	depth, defaulted := ResolveDepth(f)
	if defaulted {
		defaults = append(defaults, DefaultDepth)
	}

	stage := PolesZerosStage{
		Sequence:               1,
		Gain:                   tf.Constant,
		GainFrequency:          ReferenceFrequencyHz,
		InputUnits:             inputUnit,
		OutputUnits:            outputUnit,
		TransferFunctionType:   TransferFunctionLaplace,
		NormalizationFactor:    a0,
		NormalizationFrequency: ReferenceFrequencyHz,
		Poles:                  append([]Coefficient{}, tf.Poles...),
		Zeros:                  append([]Coefficient{}, tf.Zeros...),
	}

	return ChannelRecord{
		Network:  f.Value(FieldNetwork),
		Station:  f.Value(FieldStation),
		Location: f.Value(FieldLocation),
		Channel:  f.Value(FieldChannel),

		Created: ParseTimestamp(f.Value(FieldCreated)),
		Start:   ParseTimestamp(f.Value(FieldStart)),
		End:     ParseTimestamp(f.Value(FieldEnd)),

		Description:    f.Value(FieldDescription),
		InstrumentType: f.Value(FieldInstrumentType),
		Comment:        f.Value(FieldComment),

		Latitude:   f.OptionalFloat(FieldLatitude),
		Longitude:  f.OptionalFloat(FieldLongitude),
		Elevation:  f.OptionalFloat(FieldElevation),
		Depth:      depth,
		SampleRate: f.OptionalFloat(FieldSampleRate),

		Orientation: o,
		Units:       Units{Input: inputUnit, Output: outputUnit},
		Response: Response{
			Stage: stage,
			Sensitivity: Sensitivity{
				Value:       sens,
				Frequency:   ReferenceFrequencyHz,
				InputUnits:  stage.InputUnits,
				OutputUnits: stage.OutputUnits,
			},
		},
		Defaults: defaults,
	}, nil
}
