package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"cutvalid/domain/record"
	"cutvalid/internal/analysis"

	"github.com/spf13/cobra"
)

func newInspectCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the metadata block and table shape of a validation file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := g.container.Reader.ReadRecord(args[0])
			if err != nil {
				return err
			}
			return printInspect(cmd.OutOrStdout(), rec, g.jsonOut)
		},
	}
}

type inspection struct {
	Path       string            `json:"path"`
	Name       string            `json:"name"`
	HeaderLine int               `json:"header_line"`
	Metadata   map[string]string `json:"metadata"`
	Columns    []string          `json:"columns"`
	Rows       int               `json:"rows"`
	Bins       int               `json:"bins"`
}

func printInspect(w io.Writer, rec *record.ValidationRecord, jsonOut bool) error {
	info := inspection{
		Path:       rec.Path(),
		Name:       rec.Name(),
		HeaderLine: rec.HeaderLine(),
		Metadata:   make(map[string]string),
		Columns:    rec.Data().Columns(),
		Rows:       rec.Data().Len(),
	}
	for _, key := range rec.Keys() {
		if v, err := rec.Lookup(key); err == nil {
			info.Metadata[key] = v.String()
		}
	}
	if bins, err := rec.BinCount(); err == nil {
		info.Bins = bins
	}
	if jsonOut {
		return writeJSON(w, info)
	}

	fmt.Fprintf(w, "%s (%s)\n", info.Name, info.Path)
	fmt.Fprintf(w, "header at line %d, %d rows, %d bins\n\n", info.HeaderLine, info.Rows, info.Bins)
	keys := make([]string, 0, len(info.Metadata))
	for k := range info.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, info.Metadata[k])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\ncolumns: %s\n", strings.Join(info.Columns, ", "))
	return nil
}

func newChi2Cmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "chi2 <file>",
		Short: "Print the chi-squared scan of a validation file per direction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := g.container.Reader.ReadRecord(args[0])
			if err != nil {
				return err
			}
			result, err := g.container.Aggregator.ChiSquared(rec)
			if err != nil {
				return err
			}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return printChiSquared(cmd.OutOrStdout(), result)
		},
	}
}

func printChiSquared(w io.Writer, result *analysis.ChiSquaredResult) error {
	fmt.Fprintf(w, "%s: scale %g, %d bins, cutoff radius %g\n", result.Name, result.ScaleFactor, result.NBins, result.MaxRadius)
	for _, dr := range result.Directions {
		fmt.Fprintf(w, "\n%s (%d points, mean par/cut %s, max %s)\n",
			dr.Direction.Label(), len(dr.Points), num(dr.ParVsCut.Mean), num(dr.ParVsCut.Max))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "dc\tdw\t|d|\tchi2 cut/ref\tchi2 par/cut\tbins\tp\t")
		for _, p := range dr.Points {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t\n",
				num(p.Delta.C), num(p.Delta.W), num(p.Magnitude), num(p.CutVsRef), num(p.ParVsCut), p.Bins, num(p.PValue))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "\n%d warning(s):\n", len(result.Warnings))
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  %s\n", warning)
		}
	}
	return nil
}

func newDeviationCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "deviation <file>",
		Short: "Print the per-bin difference arrays of a validation file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := g.container.Reader.ReadRecord(args[0])
			if err != nil {
				return err
			}
			result, err := g.container.Aggregator.Deviations(rec)
			if err != nil {
				return err
			}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return printDeviations(cmd.OutOrStdout(), result)
		},
	}
}

func printDeviations(w io.Writer, result *analysis.DeviationResult) error {
	fmt.Fprintf(w, "%s: scale %g, %d bins\n", result.Name, result.ScaleFactor, result.NBins)
	for _, dd := range result.Directions {
		fmt.Fprintf(w, "\n%s\n", dd.Direction.Label())
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "bin\tdeviation\tcut-ref\tpar-cut\tpar-ref\t")
		for b := range dd.CutMinusRef {
			for i, label := range dd.Labels {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", b, label,
					num(dd.CutMinusRef[b][i]), num(dd.ParMinusCut[b][i]), num(dd.ParMinusRef[b][i]))
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func newCutEffectCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "cuteffect <file>",
		Short: "Print the no-cut, cut and parametrised reference histograms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := g.container.Reader.ReadRecord(args[0])
			if err != nil {
				return err
			}
			result, err := g.container.Aggregator.CutEffect(rec)
			if err != nil {
				return err
			}
			if g.jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return printCutEffect(cmd.OutOrStdout(), result)
		},
	}
}

func printCutEffect(w io.Writer, result *analysis.CutEffectResult) error {
	fmt.Fprintf(w, "%s: scale %g, cut value %g\n", result.Name, result.ScaleFactor, result.CutValue)
	for _, dim := range result.Dimensions {
		fmt.Fprintf(w, "%s edges: %s\n", dim.Name, nums(dim.Edges))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	header := "bin\t"
	for _, dim := range result.Dimensions {
		header += dim.Name + "\t"
	}
	fmt.Fprintln(tw, header+"no cut\tcut\tpar\t")
	for b := range result.NoCut {
		line := fmt.Sprintf("%d\t", b)
		for _, dim := range result.Dimensions {
			line += num(dim.Centers[b]) + "\t"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t\n", line, num(result.NoCut[b]), num(result.Cut[b]), num(result.Par[b]))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sanitize(v)); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// sanitize replaces NaN and Inf, which encoding/json rejects, with null
func sanitize(v interface{}) interface{} {
	if _, err := json.Marshal(v); err == nil {
		return v
	}
	return scrub(reflect.ValueOf(v))
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.6g", v)
}

func nums(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = num(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
