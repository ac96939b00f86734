package csvmeta

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"cutvalid/domain/record"
	"cutvalid/internal"
	"cutvalid/internal/errors"
)

// Reader loads validation files into records
type Reader struct {
	logger *internal.Logger
}

// NewReader creates a reader; a nil logger falls back to the default logger
func NewReader(logger *internal.Logger) *Reader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{logger: logger}
}

// ReadRecord reads the metadata block and the deviation table of the file at path.
// No partial record is returned on error.
func (r *Reader) ReadRecord(path string) (*record.ValidationRecord, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	rec, err := r.ReadRecordFrom(path, f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	r.logger.Debug("[csvmeta] read %s in %.2fms (%d rows, %d columns)",
		path, float64(time.Since(start).Nanoseconds())/1e6, rec.Data().Len(), len(rec.Data().Columns()))
	return rec, nil
}

// ReadRecordFrom reads a record from src; name identifies it in errors and results
func (r *Reader) ReadRecordFrom(name string, src io.Reader) (*record.ValidationRecord, error) {
	br := bufio.NewReader(src)
	header, err := scanMetadata(br, r.logger.Trace)
	if err != nil {
		return nil, err
	}

	table, err := readTable(br, header.DataHeaderLine)
	if err != nil {
		return nil, err
	}
	return record.New(name, header.DataHeaderLine, header.Metadata, table)
}

// readTable reads the CSV section; headerLine is the file line of the CSV header
// and only used for error positions.
func readTable(src io.Reader, headerLine int) (*record.Table, error) {
	cr := csv.NewReader(src)
	cr.TrimLeadingSpace = true

	columns, err := cr.Read()
	if err == io.EOF {
		return nil, errors.MalformedInput("no CSV header after metadata (line %d)", headerLine)
	}
	if err != nil {
		return nil, errors.Wrap(errors.MalformedInput("invalid CSV header: %v", err), "failed to read table")
	}
	for i := range columns {
		columns[i] = strings.TrimSpace(columns[i])
	}

	var rows [][]float64
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.MalformedInput("invalid CSV row: %v", err), "failed to read table")
		}
		line, _ := cr.FieldPos(0)
		row := make([]float64, len(fields))
		for c, cell := range fields {
			v, err := parseCell(cell)
			if err != nil {
				return nil, errors.MalformedInput("line %d column %q: %q is not a number", headerLine+line-1, columns[c], cell)
			}
			row[c] = v
		}
		rows = append(rows, row)
	}

	return record.NewTable(columns, rows)
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}
