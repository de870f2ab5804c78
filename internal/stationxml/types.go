// Package stationxml renders an inventory as an FDSN StationXML 1.1 document.
package stationxml

import (
	"encoding/xml"
	"time"
)

const (
	Namespace     = "http://www.fdsn.org/xml/station/1"
	SchemaVersion = "1.1"
)

// Document is the FDSNStationXML root element.
type Document struct {
	XMLName       xml.Name  `xml:"FDSNStationXML"`
	Xmlns         string    `xml:"xmlns,attr"`
	SchemaVersion string    `xml:"schemaVersion,attr"`
	Source        string    `xml:"Source"`
	Sender        string    `xml:"Sender,omitempty"`
	Module        string    `xml:"Module,omitempty"`
	ModuleURI     string    `xml:"ModuleURI,omitempty"`
	Created       time.Time `xml:"Created"`
	Networks      []Network `xml:"Network"`
}

type Network struct {
	Code        string     `xml:"code,attr"`
	StartDate   *time.Time `xml:"startDate,attr,omitempty"`
	Description string     `xml:"Description,omitempty"`
	Stations    []Station  `xml:"Station"`
}

type Station struct {
	Code         string     `xml:"code,attr"`
	StartDate    *time.Time `xml:"startDate,attr,omitempty"`
	EndDate      *time.Time `xml:"endDate,attr,omitempty"`
	Latitude     *float64   `xml:"Latitude,omitempty"`
	Longitude    *float64   `xml:"Longitude,omitempty"`
	Elevation    *float64   `xml:"Elevation,omitempty"`
	Site         Site       `xml:"Site"`
	CreationDate *time.Time `xml:"CreationDate,omitempty"`
	Channels     []Channel  `xml:"Channel"`
}

type Site struct {
	Name string `xml:"Name"`
}

type Comment struct {
	Value string `xml:"Value"`
}

type Channel struct {
	Code         string     `xml:"code,attr"`
	LocationCode string     `xml:"locationCode,attr"`
	StartDate    *time.Time `xml:"startDate,attr,omitempty"`
	EndDate      *time.Time `xml:"endDate,attr,omitempty"`
	Comments     []Comment  `xml:"Comment,omitempty"`
	Latitude     *float64   `xml:"Latitude,omitempty"`
	Longitude    *float64   `xml:"Longitude,omitempty"`
	Elevation    *float64   `xml:"Elevation,omitempty"`
	Depth        float64    `xml:"Depth"`
	Azimuth      float64    `xml:"Azimuth"`
	Dip          float64    `xml:"Dip"`
	SampleRate   *float64   `xml:"SampleRate,omitempty"`
	Sensor       *Equipment `xml:"Sensor,omitempty"`
	Response     Response   `xml:"Response"`
}

type Equipment struct {
	Type string `xml:"Type"`
}

type Units struct {
	Name string `xml:"Name"`
}

type Response struct {
	InstrumentSensitivity InstrumentSensitivity `xml:"InstrumentSensitivity"`
	Stages                []Stage               `xml:"Stage"`
}

type InstrumentSensitivity struct {
	Value       float64 `xml:"Value"`
	Frequency   float64 `xml:"Frequency"`
	InputUnits  Units   `xml:"InputUnits"`
	OutputUnits Units   `xml:"OutputUnits"`
}

type Stage struct {
	Number     int        `xml:"number,attr"`
	PolesZeros PolesZeros `xml:"PolesZeros"`
	StageGain  Gain       `xml:"StageGain"`
}

type Gain struct {
	Value     float64 `xml:"Value"`
	Frequency float64 `xml:"Frequency"`
}

type PolesZeros struct {
	InputUnits             Units      `xml:"InputUnits"`
	OutputUnits            Units      `xml:"OutputUnits"`
	PzTransferFunctionType string     `xml:"PzTransferFunctionType"`
	NormalizationFactor    float64    `xml:"NormalizationFactor"`
	NormalizationFrequency float64    `xml:"NormalizationFrequency"`
	Zeros                  []PoleZero `xml:"Zero"`
	Poles                  []PoleZero `xml:"Pole"`
}

// PoleZero is one complex root; number counts from 0 within its list.
type PoleZero struct {
	Number    int         `xml:"number,attr"`
	Real      FloatNoUnit `xml:"Real"`
	Imaginary FloatNoUnit `xml:"Imaginary"`
}

type FloatNoUnit struct {
	PlusError  *float64 `xml:"plusError,attr,omitempty"`
	MinusError *float64 `xml:"minusError,attr,omitempty"`
	Value      float64  `xml:",chardata"`
}
