package csvmeta

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"cutvalid/domain/metadata"
	"cutvalid/domain/record"
)

// WriteMetadata serialises a block between the begin and end markers, one
// ID:value line per field in sorted key order.
func WriteMetadata(w io.Writer, block metadata.Block) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, metadata.BeginMarker)
	for _, key := range block.Keys() {
		fmt.Fprintf(bw, "%s%s%s\n", key, metadata.FieldSeparator, block[key].String())
	}
	fmt.Fprintln(bw, metadata.EndMarker)
	return bw.Flush()
}

// WriteRecord serialises a block followed by the table as CSV
func WriteRecord(w io.Writer, block metadata.Block, table *record.Table) error {
	if err := WriteMetadata(w, block); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	columns := table.Columns()
	if err := cw.Write(columns); err != nil {
		return err
	}
	cells := make([]string, len(columns))
	for row := 0; row < table.Len(); row++ {
		for c, name := range columns {
			v, err := table.Value(row, name)
			if err != nil {
				return err
			}
			cells[c] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
