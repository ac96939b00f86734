// Package delta holds the geometry of deviation points (Δc, Δw): the distance
// from the nominal cut and the direction a point lies along.
package delta

import (
	"fmt"
	"math"
	"strings"

	"cutvalid/internal/errors"
)

// RatioEpsilon is the smallest |denominator| Ratio divides by
const RatioEpsilon = 1e-8

// Pair is one deviation point: shift of the cut center and of the cut width
type Pair struct {
	C float64
	W float64
}

// IsReference reports whether the pair is the no-deviation point
func (p Pair) IsReference() bool {
	return p.C == 0 && p.W == 0
}

// Magnitude returns sqrt(Δc² + Δw²)
func Magnitude(c, w float64) float64 {
	return math.Sqrt(c*c + w*w)
}

// Magnitude returns the distance of the pair from the reference point
func (p Pair) Magnitude() float64 {
	return Magnitude(p.C, p.W)
}

// Magnitudes returns the magnitude of every pair
func Magnitudes(pairs []Pair) []float64 {
	out := make([]float64, len(pairs))
	for i, p := range pairs {
		out[i] = p.Magnitude()
	}
	return out
}

// Ratio returns a/b, or def when |b| is not above RatioEpsilon
func Ratio(a, b, def float64) float64 {
	if math.Abs(b) > RatioEpsilon {
		return a / b
	}
	return def
}

// Ratios applies Ratio element-wise; the slices must have equal length
func Ratios(a, b []float64, def float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = Ratio(a[i], b[i], def)
	}
	return out
}

// Direction is a deviation direction in the (Δc, Δw) plane
type Direction int

const (
	Center Direction = iota
	Width
	UpperEdge
	LowerEdge
	Combination
	// AllPoints selects every point; it is a selection, not a class of Classify.
	AllPoints
)

// Classes are the directions that partition the (Δc, Δw) plane
var Classes = []Direction{Center, Width, UpperEdge, LowerEdge, Combination}

// Axes are the four single-parameter directions
var Axes = []Direction{Center, Width, UpperEdge, LowerEdge}

var directionNames = map[Direction]string{
	Center:      "center",
	Width:       "width",
	UpperEdge:   "upper-edge",
	LowerEdge:   "lower-edge",
	Combination: "combination",
	AllPoints:   "all",
}

var directionLabels = map[Direction]string{
	Center:      "center only",
	Width:       "width only",
	UpperEdge:   "upper edge only",
	LowerEdge:   "lower edge only",
	Combination: "combination",
	AllPoints:   "all points",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return "unknown"
}

// Label is the human-readable name used in reports
func (d Direction) Label() string {
	if label, ok := directionLabels[d]; ok {
		return label
	}
	return "unknown"
}

// Slug is the label with spaces replaced, used in file names
func (d Direction) Slug() string {
	return strings.ReplaceAll(d.Label(), " ", "_")
}

// ParseDirection accepts a direction name, label or slug
func ParseDirection(name string) (Direction, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for d := Center; d <= AllPoints; d++ {
		if needle == d.String() || needle == d.Label() || needle == d.Slug() {
			return d, nil
		}
	}
	return 0, errors.UnknownDirection(name)
}

// MarshalText encodes the direction by name
func (d Direction) MarshalText() ([]byte, error) {
	if _, ok := directionNames[d]; !ok {
		return nil, errors.UnknownDirection(fmt.Sprintf("%d", int(d)))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name, label or slug
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Contains reports whether p lies on the direction's line through the reference
// point. The reference point lies on all four axes.
func (d Direction) Contains(p Pair) bool {
	switch d {
	case Center:
		return p.W == 0
	case Width:
		return p.C == 0
	case UpperEdge:
		return p.C-p.W/2 == 0
	case LowerEdge:
		return p.C+p.W/2 == 0
	case Combination:
		return !Center.Contains(p) && !Width.Contains(p) && !UpperEdge.Contains(p) && !LowerEdge.Contains(p)
	case AllPoints:
		return true
	default:
		return false
	}
}

// Classify returns the single class of p; the first axis in Classes order wins,
// so the reference point is Center.
func Classify(p Pair) Direction {
	for _, d := range Axes {
		if d.Contains(p) {
			return d
		}
	}
	return Combination
}

// Matches is the exclusive class predicate: exactly one class matches any pair
func (d Direction) Matches(p Pair) bool {
	return d != AllPoints && Classify(p) == d
}

// Project returns the signed deviation of p along the direction
func (d Direction) Project(p Pair) (float64, error) {
	switch d {
	case Center:
		return p.C, nil
	case Width:
		return p.W, nil
	case UpperEdge:
		return p.C + p.W/2, nil
	case LowerEdge:
		return p.C - p.W/2, nil
	default:
		return 0, errors.UnknownDirection(d.String())
	}
}

// InDirection returns the signed deviation of (c, w) along the named direction.
// Only the four axes have a projection.
func InDirection(name string, c, w float64) (float64, error) {
	d, err := ParseDirection(name)
	if err != nil {
		return 0, err
	}
	return d.Project(Pair{C: c, W: w})
}

// Select returns the indices of pairs on d whose magnitude does not exceed maxRadius.
// A maxRadius of +Inf disables the cutoff; zero keeps only the origin.
func Select(d Direction, pairs []Pair, maxRadius float64) []int {
	useCutoff := !math.IsInf(maxRadius, 1)
	var idx []int
	for i, p := range pairs {
		if !d.Contains(p) {
			continue
		}
		if useCutoff && p.Magnitude() > maxRadius {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}
