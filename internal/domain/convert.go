package domain

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Convert parses one PZ file into a ChannelRecord. It returns a complete
// record or an error, never both.
func Convert(raw RawPZ) (ChannelRecord, error) {
	if raw.Err != nil {
		return ChannelRecord{}, raw.Err
	}
	fields := ExtractFields(raw.Text)

	orientation, inferred, err := ResolveOrientation(fields)
	if err != nil {
		return ChannelRecord{}, withFile(err, raw.Name)
	}

	tf, err := ParsePolesZeros(raw.Text)
	if err != nil {
		return ChannelRecord{}, withFile(err, raw.Name)
	}

	rec, err := BuildRecord(fields, orientation, tf)
	if err != nil {
		return ChannelRecord{}, withFile(err, raw.Name)
	}

	if inferred {
		rec.Defaults = append([]string{DefaultOrientation}, rec.Defaults...)
	}
	rec.Source = raw.Name
	rec.ProcessedAt = clock.Now().UTC()
	return rec, nil
}

// ReadFile loads a PZ file fully into memory.
func ReadFile(path string) (RawPZ, error) {
	f, err := os.Open(path)
	if err != nil {
		return RawPZ{}, fmt.Errorf("open pz file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return RawPZ{}, fmt.Errorf("stat pz file %s: %w", path, err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return RawPZ{}, fmt.Errorf("read pz file %s: %w", path, err)
	}

	return RawPZ{
		Name:      filepath.Base(path),
		Text:      string(data),
		Timestamp: info.ModTime().UTC(),
	}, nil
}
