package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"

	"github.com/Blackdeer1524/ISAMStore/src/pkg/optional"
	"github.com/Blackdeer1524/ISAMStore/src/storage/record"
)

// FormatVersion is bumped whenever the page or index layout changes.
const FormatVersion = uint64(1)

var (
	ErrMismatch          = errors.New("data file was created with different settings")
	ErrUnsupportedFormat = errors.New("unsupported data file format")
)

type FieldMeta struct {
	Name  string           `json:"name"`
	Type  record.FieldType `json:"type"`
	Width int              `json:"width,omitempty"`
}

// Data describes how a data file is laid out. It is written next to the
// data file when the file is created and checked on every open.
type Data struct {
	Version        uint64      `json:"version"`
	Fields         []FieldMeta `json:"fields"`
	Key            string      `json:"key"`
	BlockFactor    int         `json:"block_factor"`
	OverflowPolicy string      `json:"overflow_policy"`
	PageSize       int         `json:"page_size"`
}

func NewData(schema record.Schema, blockFactor int, policy string, pageSize int) Data {
	fields := make([]FieldMeta, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		fields = append(fields, FieldMeta{Name: f.Name, Type: f.Type, Width: f.Width})
	}

	return Data{
		Version:        FormatVersion,
		Fields:         fields,
		Key:            schema.Fields[schema.Key].Name,
		BlockFactor:    blockFactor,
		OverflowPolicy: policy,
		PageSize:       pageSize,
	}
}

// Check reports the first setting of want that differs from the stored
// data.
func (d Data) Check(want Data) error {
	switch {
	case d.Version > FormatVersion:
		return fmt.Errorf("%w: version %d, newest known is %d", ErrUnsupportedFormat, d.Version, FormatVersion)
	case !slices.Equal(d.Fields, want.Fields) || d.Key != want.Key:
		return fmt.Errorf("%w: schema differs", ErrMismatch)
	case d.BlockFactor != want.BlockFactor:
		return fmt.Errorf("%w: block factor %d, requested %d", ErrMismatch, d.BlockFactor, want.BlockFactor)
	case d.OverflowPolicy != want.OverflowPolicy:
		return fmt.Errorf(
			"%w: overflow policy %q, requested %q",
			ErrMismatch,
			d.OverflowPolicy,
			want.OverflowPolicy,
		)
	case d.PageSize != want.PageSize:
		return fmt.Errorf("%w: page size %d, requested %d", ErrMismatch, d.PageSize, want.PageSize)
	}
	return nil
}

// Load reads the catalog at path. A missing file yields None.
func Load(fs afero.Fs, path string) (optional.Optional[Data], error) {
	dataBytes, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return optional.None[Data](), nil
	}
	if err != nil {
		return optional.None[Data](), fmt.Errorf("failed to read catalog file: %w", err)
	}

	var data Data
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return optional.None[Data](), fmt.Errorf("failed to unmarshal catalog file: %w", err)
	}
	return optional.Some(data), nil
}

// Save writes d to path through a synced temporary file that replaces the
// previous catalog.
func Save(fs afero.Fs, path string, d Data) (err error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog data: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"
	file, err := fs.OpenFile(filepath.Clean(tmpPath), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open catalog file: %w", err)
	}

	_, err = file.Write(data)
	if err == nil {
		err = file.Sync()
	}
	if err != nil {
		return errors.Join(fmt.Errorf("failed to write catalog file: %w", err), file.Close())
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close catalog file: %w", err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace catalog file: %w", err)
	}
	return nil
}

// Ensure checks want against the catalog at path, or creates the catalog
// when there is none yet. It reports whether the catalog was created.
func Ensure(fs afero.Fs, path string, want Data) (bool, error) {
	stored, err := Load(fs, path)
	if err != nil {
		return false, err
	}
	if d, ok := stored.Get(); ok {
		return false, d.Check(want)
	}
	return true, Save(fs, path, want)
}
