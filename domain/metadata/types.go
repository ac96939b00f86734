// Package metadata holds the typed key/value block found at the top of a
// validation CSV file.
package metadata

import (
	"sort"
	"strconv"
	"strings"
)

// Field identifiers with a fixed interpretation.
const (
	KeyEnergy       = "Energy"
	KeyEMinusChiral = "e-Chirality"
	KeyEPlusChiral  = "e+Chirality"
	KeyNTotalMC     = "NTotalMC"
	KeyCutValue     = "Coef|MuonAcc_CutValue"
	KeyCrossSection = "CrossSection"
	KeyDelta        = "Delta"
	KeyCoordName    = "CoordName"
	KeyCoordNBins   = "CoordNBins"
	KeyCoordMin     = "CoordMin"
	KeyCoordMax     = "CoordMax"
	KeyBinCenters   = "BinCenters"
	KeyNoCutData    = "NoCutData"
	KeyName         = "Name"
	BeginMarker     = "#BEGIN-METADATA"
	EndMarker       = "#END-METADATA"
	DataKey         = "Data"
	FieldSeparator  = ":"
)

// Kind is the interpretation class of a metadata value
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindArray:
		return "array"
	default:
		return "string"
	}
}

var intFields = map[string]bool{
	KeyEnergy:       true,
	KeyEMinusChiral: true,
	KeyEPlusChiral:  true,
	KeyNTotalMC:     true,
}

var floatFields = map[string]bool{
	KeyCutValue:     true,
	KeyCrossSection: true,
	KeyDelta:        true,
}

var arrayFields = map[string]bool{
	KeyCoordName:  true,
	KeyCoordNBins: true,
	KeyCoordMin:   true,
	KeyCoordMax:   true,
	KeyBinCenters: true,
	KeyNoCutData:  true,
}

// KindOf returns the interpretation class of a field ID. Unlisted IDs are strings.
func KindOf(id string) Kind {
	switch {
	case intFields[id]:
		return KindInt
	case floatFields[id]:
		return KindFloat
	case arrayFields[id]:
		return KindArray
	default:
		return KindString
	}
}

// Value is one interpreted metadata value; only the member matching Kind is set.
type Value struct {
	Kind  Kind
	Int   int
	Float float64
	Str   string
	Array Node
}

// IntValue builds an int value
func IntValue(i int) Value { return Value{Kind: KindInt, Int: i} }

// FloatValue builds a float value
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// StringValue builds a string value
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// ArrayValue builds an array value
func ArrayValue(n Node) Value { return Value{Kind: KindArray, Array: n} }

// String renders the value in the textual form the metadata block uses.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.Itoa(v.Int)
	case KindFloat:
		return FormatNumber(v.Float)
	case KindArray:
		return v.Array.String()
	default:
		return v.Str
	}
}

// FormatNumber formats a float with the shortest representation that parses back exactly.
func FormatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Block maps field IDs to interpreted values
type Block map[string]Value

// Get returns the value stored for id
func (b Block) Get(id string) (Value, bool) {
	v, ok := b[id]
	return v, ok
}

// Keys returns the field IDs in sorted order
func (b Block) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
