// Package record composes the metadata block and the deviation table of one
// validation file into a read-only, key-addressable record.
package record

import (
	"path/filepath"
	"sort"
	"strings"

	"cutvalid/domain/metadata"
	"cutvalid/internal/errors"
)

// ValidationRecord is the parsed content of one validation file
type ValidationRecord struct {
	path       string
	headerLine int
	meta       metadata.Block
	data       *Table
}

// New composes a record. The metadata may not use the reserved "Data" key and the
// table must carry the Delta-c and Delta-w columns.
func New(path string, headerLine int, meta metadata.Block, data *Table) (*ValidationRecord, error) {
	if _, clash := meta[metadata.DataKey]; clash {
		return nil, errors.MalformedInput("metadata field %q collides with the reserved dataset key", metadata.DataKey)
	}
	if data == nil {
		return nil, errors.MalformedInput("record %s has no dataset", path)
	}
	for _, col := range []string{ColDeltaC, ColDeltaW} {
		if !data.Has(col) {
			return nil, errors.MalformedInput("missing column %q", col)
		}
	}

	copied := make(metadata.Block, len(meta))
	for k, v := range meta {
		copied[k] = v
	}
	return &ValidationRecord{
		path:       path,
		headerLine: headerLine,
		meta:       copied,
		data:       data,
	}, nil
}

// Path returns the file the record was read from
func (r *ValidationRecord) Path() string { return r.path }

// HeaderLine returns the 1-based line of the CSV header
func (r *ValidationRecord) HeaderLine() int { return r.headerLine }

// Data returns the deviation table
func (r *ValidationRecord) Data() *Table { return r.data }

// Keys lists every addressable key, the dataset key included
func (r *ValidationRecord) Keys() []string {
	keys := r.meta.Keys()
	keys = append(keys, metadata.DataKey)
	sort.Strings(keys)
	return keys
}

// Get looks up a key in the combined namespace. The dataset is returned as *Table,
// metadata fields as metadata.Value.
func (r *ValidationRecord) Get(key string) (interface{}, error) {
	if key == metadata.DataKey {
		return r.data, nil
	}
	return r.Lookup(key)
}

// Lookup returns a metadata value
func (r *ValidationRecord) Lookup(key string) (metadata.Value, error) {
	v, ok := r.meta[key]
	if !ok {
		return metadata.Value{}, errors.UnknownField(key)
	}
	return v, nil
}

// Has reports whether a metadata field is present
func (r *ValidationRecord) Has(key string) bool {
	_, ok := r.meta[key]
	return ok
}

func (r *ValidationRecord) typed(key string, kind metadata.Kind) (metadata.Value, error) {
	v, err := r.Lookup(key)
	if err != nil {
		return v, err
	}
	if v.Kind != kind {
		return v, errors.New(errors.CodeUnknownField, "field "+key+" is "+v.Kind.String()+", not "+kind.String())
	}
	return v, nil
}

// Int returns an integer field
func (r *ValidationRecord) Int(key string) (int, error) {
	v, err := r.typed(key, metadata.KindInt)
	return v.Int, err
}

// Float returns a floating-point field
func (r *ValidationRecord) Float(key string) (float64, error) {
	v, err := r.typed(key, metadata.KindFloat)
	return v.Float, err
}

// Text returns a string field
func (r *ValidationRecord) Text(key string) (string, error) {
	v, err := r.typed(key, metadata.KindString)
	return v.Str, err
}

// Array returns an array field
func (r *ValidationRecord) Array(key string) (metadata.Node, error) {
	v, err := r.typed(key, metadata.KindArray)
	return v.Array, err
}

// Name returns the Name field, falling back to the file's base name
func (r *ValidationRecord) Name() string {
	if name, err := r.Text(metadata.KeyName); err == nil && name != "" {
		return name
	}
	return strings.TrimSuffix(filepath.Base(r.path), filepath.Ext(r.path))
}

// BinCount returns the number of histogram bins. With BinCenters present its length
// must match the C/P columns; otherwise the contiguous C0..Cn-1 columns are counted.
func (r *ValidationRecord) BinCount() (int, error) {
	n := 0
	if r.Has(metadata.KeyBinCenters) {
		centers, err := r.Array(metadata.KeyBinCenters)
		if err != nil {
			return 0, err
		}
		n = centers.Len()
	} else {
		for r.data.Has(CutColumn(n)) {
			n++
		}
	}
	if n == 0 {
		return 0, errors.MalformedInput("%s has no histogram bins", r.path)
	}
	for b := 0; b < n; b++ {
		if !r.data.Has(CutColumn(b)) || !r.data.Has(ParColumn(b)) {
			return 0, errors.MalformedInput("bin count %d does not match count columns: missing %s or %s", n, CutColumn(b), ParColumn(b))
		}
	}
	if r.data.Has(CutColumn(n)) || r.data.Has(ParColumn(n)) {
		return 0, errors.MalformedInput("bin count %d does not match count columns: found extra column for bin %d", n, n)
	}
	return n, nil
}
