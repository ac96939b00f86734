package analysis

import (
	"github.com/montanaflynn/stats"
)

// Summarize describes a χ² sequence. An empty sequence yields the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	data := stats.LoadRawData(values)
	mean, _ := data.Mean()
	median, _ := data.Median()
	p90, _ := data.Percentile(90)
	max, _ := data.Max()
	return Summary{
		N:      len(values),
		Mean:   mean,
		Median: median,
		P90:    p90,
		Max:    max,
	}
}
