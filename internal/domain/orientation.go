package domain

import "fmt"

// ResolveOrientation returns azimuth and dip in degrees. When either field is
// blank the orientation is inferred from the last letter of the channel code
// and inferred is true.
func ResolveOrientation(f Fields) (o Orientation, inferred bool, err error) {
	az, hasAz := f.Lookup(FieldAzimuth)
	dip, hasDip := f.Lookup(FieldDip)

	if !hasAz || !hasDip {
		o, err = orientationFromChannel(f.Value(FieldChannel))
		return o, err == nil, err
	}

	azimuth, azState := parseFloat(az)
	dipDeg, dipState := parseFloat(dip)
	if azState != FieldPresent || dipState != FieldPresent {
		return Orientation{}, false, newParseError(BlockOrientation, 0,
			fmt.Sprintf("%s %s", az, dip), "cannot parse azimuth/dip", nil)
	}
	return Orientation{Azimuth: azimuth, Dip: dipDeg}, false, nil
}

func orientationFromChannel(channel string) (Orientation, error) {
	if channel == "" {
		return Orientation{}, newParseError(BlockOrientation, 0, channel,
			"channel code is empty and orientation is not explicit", nil)
	}

	switch channel[len(channel)-1] {
	case 'E':
		return Orientation{Azimuth: 90, Dip: 0}, nil
	case 'N':
		return Orientation{Azimuth: 0, Dip: 0}, nil
	case 'Z':
		return Orientation{Azimuth: 0, Dip: 90}, nil
	default:
		return Orientation{}, newParseError(BlockOrientation, 0, channel,
			"channel name must end in E, N, or Z when orientation is not explicit", nil)
	}
}
