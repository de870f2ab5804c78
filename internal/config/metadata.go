package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Metadata is the document-level information written into the StationXML
// header. It is read from a TOML file:
//
//	source = "KOERI"
//	sender = "Kandilli Observatory"
//
//	[networks]
//	KO = "Kandilli Observatory Digital Broadband Seismic Network"
type Metadata struct {
	Source    string            `toml:"source"`
	Sender    string            `toml:"sender"`
	Module    string            `toml:"module"`
	ModuleURI string            `toml:"module_uri"`
	Networks  map[string]string `toml:"networks"`
}

// DefaultMetadata is used when no metadata file is configured.
func DefaultMetadata() Metadata {
	return Metadata{
		Source: "KOERI",
		Module: "pz2sxml PZ to StationXML converter",
	}
}

// LoadMetadata reads path over DefaultMetadata. An empty path returns the defaults.
func LoadMetadata(path string) (Metadata, error) {
	md := DefaultMetadata()
	if path == "" {
		return md, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata file: %w", err)
	}
	if err := toml.Unmarshal(data, &md); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata file %s: %w", path, err)
	}
	if md.Source == "" {
		return Metadata{}, fmt.Errorf("metadata file %s: source must not be empty", path)
	}
	return md, nil
}
