// Package csvmeta reads validation CSV files: a #BEGIN-METADATA/#END-METADATA block
// of typed ID:value lines followed by a CSV table.
package csvmeta

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"cutvalid/domain/metadata"
	"cutvalid/internal/errors"
)

// Header is the result of scanning a metadata block
type Header struct {
	Metadata metadata.Block
	// DataHeaderLine is the 1-based line of the CSV header, the line after the end marker.
	DataHeaderLine int
}

// ParseMetadata scans a metadata block from r. Non-blank content before the begin
// marker, a malformed ID:value line, an uninterpretable value or a missing end
// marker are MalformedInput errors.
func ParseMetadata(r io.Reader) (*Header, error) {
	return scanMetadata(bufio.NewReader(r), nil)
}

// ParseMetadataFile scans the metadata block of the file at path. The file is
// closed before returning.
func ParseMetadataFile(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	header, err := ParseMetadata(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read metadata of %s", path)
	}
	return header, nil
}

func scanMetadata(br *bufio.Reader, trace func(format string, args ...interface{})) (*Header, error) {
	block := metadata.Block{}
	inMetadata := false
	lineNo := 0

	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, errors.Wrapf(readErr, "failed to read line %d", lineNo+1)
		}
		if line == "" && readErr == io.EOF {
			break
		}
		lineNo++
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.Contains(trimmed, metadata.EndMarker):
			if !inMetadata {
				return nil, errors.MalformedInput("line %d: %s before %s", lineNo, metadata.EndMarker, metadata.BeginMarker)
			}
			return &Header{Metadata: block, DataHeaderLine: lineNo + 1}, nil
		case strings.Contains(trimmed, metadata.BeginMarker):
			if inMetadata {
				return nil, errors.MalformedInput("line %d: repeated %s", lineNo, metadata.BeginMarker)
			}
			inMetadata = true
		case trimmed == "":
			// blank lines are ignored inside and before the block
		case !inMetadata:
			return nil, errors.MalformedInput("line %d: unexpected line before CSV metadata: %q", lineNo, trimmed)
		default:
			if trace != nil {
				trace("interpreting metadata line %d: %s", lineNo, trimmed)
			}
			id, raw, err := SplitField(trimmed)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			if _, dup := block[id]; dup {
				return nil, errors.MalformedInput("line %d: duplicate metadata field %q", lineNo, id)
			}
			value, err := InterpretValue(id, raw)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			block[id] = value
		}

		if readErr == io.EOF {
			break
		}
	}

	if !inMetadata {
		return nil, errors.MalformedInput("no %s found", metadata.BeginMarker)
	}
	return nil, errors.MalformedInput("%s not found after %d lines", metadata.EndMarker, lineNo)
}

// SplitField splits a metadata line on its first ':' into a non-empty ID and a
// trimmed value.
func SplitField(line string) (string, string, error) {
	id, value, found := strings.Cut(line, metadata.FieldSeparator)
	if !found {
		return "", "", errors.MalformedInput("metadata line %q has no %q separator", line, metadata.FieldSeparator)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", errors.MalformedInput("metadata line %q has an empty field ID", line)
	}
	return id, strings.TrimSpace(value), nil
}

// InterpretValue converts a trimmed value according to the class of id
func InterpretValue(id, raw string) (metadata.Value, error) {
	switch metadata.KindOf(id) {
	case metadata.KindInt:
		f, err := parseFinite(raw)
		if err != nil {
			return metadata.Value{}, errors.MalformedInput("field %s: %q is not a number", id, raw)
		}
		t := math.Trunc(f)
		if t < float64(math.MinInt) || t >= float64(math.MaxInt) {
			return metadata.Value{}, errors.MalformedInput("field %s: %q is out of integer range", id, raw)
		}
		return metadata.IntValue(int(t)), nil
	case metadata.KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return metadata.Value{}, errors.MalformedInput("field %s: %q is not a number", id, raw)
		}
		return metadata.FloatValue(f), nil
	case metadata.KindArray:
		node, err := ParseLiteral(raw)
		if err != nil {
			return metadata.Value{}, errors.Wrap(errors.MalformedInput("field %s: %v", id, err), "invalid array literal")
		}
		if node.Kind != metadata.NodeList {
			return metadata.Value{}, errors.MalformedInput("field %s: %q is not an array", id, raw)
		}
		return metadata.ArrayValue(node), nil
	default:
		return metadata.StringValue(raw), nil
	}
}

func parseFinite(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}
