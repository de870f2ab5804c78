// Package domain parses SAC Poles-and-Zeros (PZ) instrument response files into
// channel response records ready for StationXML serialization.
//
// # File Format
//
// A PZ file mixes free-text comment lines with fixed-column labelled header
// lines and three numeric blocks:
//
//	* **********************************
//	* NETWORK   (KNETWK): XX
//	* STATION    (KSTNM): ABC
//	* LOCATION   (KHOLE):
//	* CHANNEL   (KCMPNM): BHZ
//	* CREATED           : 2016-09-26 05.20.18
//	* LATITUDE          : 40.7712
//	* INPUT UNIT        : M/S
//	* SENSITIVITY       : 1.000000e+03 (V/M/S)
//	* A0                : 1.0
//	* **********************************
//	ZEROS 0
//	POLES 1
//	-1.0 0.0
//	CONSTANT 2.0
//
// Header labels are matched character-for-character, padding included. A
// label that differs in spacing is ordinary text, not a near miss.
//
// The line after "POLES n" (or "ZEROS n") starts the block: exactly the
// next n lines hold "<real> <imag>" pairs. Blank or comment lines inside a
// block are malformed data, not skipped.
//
// # Processing
//
// Conversion is a chain of pure steps, each taking the previous value:
//
//	text → ExtractFields → ResolveOrientation → ParsePolesZeros → BuildRecord
//
// Convert runs the chain for one file and returns a complete ChannelRecord or
// an error; there is no partial result.
//
// # Defaults
//
// The format carries no frequency metadata, so the gain and normalization
// reference frequencies are both fixed at 1.0 Hz and the transfer function
// is always LAPLACE (RADIANS/SECOND).
//
// Per-field policy:
//
//	A0, sensitivity           mandatory; fatal when absent or non-numeric
//	azimuth, dip              inferred from the channel suffix (E, N, Z) when either is blank
//	depth                     0.0 when absent or non-numeric
//	input unit                "M/S" unless "M/S" or "M/S**2"
//	latitude, longitude,
//	elevation, sample rate    left unset when absent or non-numeric
//
// Applied defaults are listed on ChannelRecord.Defaults so callers can log
// them; the unit coercion in particular can hide a real metadata error.
package domain
