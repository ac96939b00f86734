// Package report renders validation runs as markdown and HTML summaries.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"cutvalid/domain/core"
	"cutvalid/domain/delta"
	"cutvalid/domain/run"
	"cutvalid/internal/analysis"
)

// Document is the report view of a run. It can be built from an in-memory
// result or from the stored rows of a past run.
type Document struct {
	Run      run.Summary
	Settings *run.Settings
	Files    []FileSection
	Failures []run.FileFailure
}

// FileSection is the report view of one processed file
type FileSection struct {
	Path       string
	Title      string
	Checksum   core.Hash
	NBins      int
	Warnings   []string
	Directions []DirectionSection
}

// DirectionSection holds the χ² points of one direction
type DirectionSection struct {
	Direction string
	Points    []run.PointRow
	ParVsCut  analysis.Summary
}

// FromResult builds the document of a finished run
func FromResult(result *run.Result) Document {
	doc := Document{
		Run:      result.Summary(),
		Settings: &result.Manifest.Settings,
		Failures: result.Failures,
	}
	for _, fr := range result.Files {
		section := FileSection{
			Path:     fr.Path,
			Title:    fr.Title,
			Checksum: fr.Checksum,
		}
		if fr.ChiSquared != nil {
			section.NBins = fr.ChiSquared.NBins
		}
		for _, w := range fr.Warnings() {
			section.Warnings = append(section.Warnings, w.String())
		}
		section.Directions = groupPoints(run.PointRows(fr))
		doc.Files = append(doc.Files, section)
	}
	return doc
}

// FromStored builds the document of a run read back from a repository.
// Files with a recorded error become failures.
func FromStored(summary run.Summary, files []run.FileSummary, points []run.PointRow) Document {
	byFile := make(map[core.FileID][]run.PointRow)
	for _, p := range points {
		byFile[p.FileID] = append(byFile[p.FileID], p)
	}

	doc := Document{Run: summary}
	for _, f := range files {
		if f.Error != "" {
			code, msg, ok := strings.Cut(f.Error, ": ")
			if !ok {
				code, msg = "", f.Error
			}
			doc.Failures = append(doc.Failures, run.FileFailure{Path: f.Path, Code: code, Error: msg})
			continue
		}
		title := f.Name
		if title == "" {
			title = f.BaseName
		}
		doc.Files = append(doc.Files, FileSection{
			Path:       f.Path,
			Title:      title,
			Checksum:   f.Checksum,
			NBins:      f.NBins,
			Directions: groupPoints(byFile[f.ID]),
		})
		if f.Warnings > 0 {
			last := &doc.Files[len(doc.Files)-1]
			last.Warnings = []string{fmt.Sprintf("%d domain warning(s) recorded", f.Warnings)}
		}
	}
	return doc
}

// groupPoints splits rows by direction, keeping first-seen order
func groupPoints(rows []run.PointRow) []DirectionSection {
	var sections []DirectionSection
	index := make(map[string]int)
	for _, p := range rows {
		i, ok := index[p.Direction]
		if !ok {
			i = len(sections)
			index[p.Direction] = i
			sections = append(sections, DirectionSection{Direction: p.Direction})
		}
		sections[i].Points = append(sections[i].Points, p)
	}
	for i := range sections {
		values := make([]float64, 0, len(sections[i].Points))
		for _, p := range sections[i].Points {
			if !math.IsNaN(p.ParVsCut) {
				values = append(values, p.ParVsCut)
			}
		}
		sections[i].ParVsCut = analysis.Summarize(values)
	}
	return sections
}

// Markdown renders the document
func Markdown(doc Document) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Validation run %s\n\n", doc.Run.ID)
	fmt.Fprintf(&b, "- Status: **%s**\n", doc.Run.Status)
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n", doc.Run.Fingerprint.Short())
	fmt.Fprintf(&b, "- Luminosity: %g fb^-1\n", doc.Run.TestLumi)
	fmt.Fprintf(&b, "- Files: %d processed, %d failed\n", doc.Run.FileCount, doc.Run.FailedCount)
	if !doc.Run.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- Started: %s\n", doc.Run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if doc.Settings != nil {
		fmt.Fprintf(&b, "- Cutoff factor: %g, difference cutoff factor: %g\n",
			doc.Settings.CutoffFactor, doc.Settings.DiffCutoffFactor)
	}
	b.WriteString("\n")

	for _, f := range doc.Files {
		fmt.Fprintf(&b, "## %s\n\n", escape(f.Title))
		fmt.Fprintf(&b, "%s (%d bins, checksum `%s`)\n\n", code(f.Path), f.NBins, f.Checksum.Short())

		if len(f.Directions) > 0 {
			b.WriteString("| Direction | Points | Mean χ² par/cut | Median | P90 | Max |\n")
			b.WriteString("|---|---:|---:|---:|---:|---:|\n")
			for _, d := range f.Directions {
				s := d.ParVsCut
				fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s |\n",
					label(d.Direction), len(d.Points), num(s.Mean), num(s.Median), num(s.P90), num(s.Max))
			}
			b.WriteString("\n")
		}

		for _, d := range f.Directions {
			fmt.Fprintf(&b, "### %s\n\n", label(d.Direction))
			b.WriteString("| Δc | Δw | χ² cut/ref | χ² par/cut | Bins | p-value |\n")
			b.WriteString("|---:|---:|---:|---:|---:|---:|\n")
			for _, p := range d.Points {
				fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %s |\n",
					num(p.DeltaC), num(p.DeltaW), num(p.CutVsRef), num(p.ParVsCut), p.Bins, num(p.PValue))
			}
			b.WriteString("\n")
		}

		if len(f.Warnings) > 0 {
			b.WriteString("**Warnings**\n\n")
			for _, w := range f.Warnings {
				fmt.Fprintf(&b, "- %s\n", escape(w))
			}
			b.WriteString("\n")
		}
	}

	if len(doc.Failures) > 0 {
		b.WriteString("## Failures\n\n")
		b.WriteString("| File | Code | Error |\n")
		b.WriteString("|---|---|---|\n")
		for _, f := range doc.Failures {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", code(f.Path), code(f.Code), escape(f.Error))
		}
		b.WriteString("\n")
	}

	return []byte(b.String())
}

// HTML renders the document as a complete HTML page
func HTML(doc Document) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML,
		Title: fmt.Sprintf("Validation run %s", doc.Run.ID),
	})
	return markdown.ToHTML(Markdown(doc), p, renderer)
}

func label(direction string) string {
	d, err := delta.ParseDirection(direction)
	if err != nil {
		return direction
	}
	return d.Label()
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", v)
}

// escaper backslash-escapes table, emphasis and markup characters so file content
// always renders as text.
var escaper = strings.NewReplacer(
	"|", `\|`, "*", `\*`, "_", `\_`,
	"&", `\&`, "<", `\<`, ">", `\>`,
)

func escape(s string) string {
	return escaper.Replace(s)
}

// code renders s as an inline code span; the renderer escapes its content.
func code(s string) string {
	return "`" + strings.ReplaceAll(strings.ReplaceAll(s, "`", "'"), "|", `\|`) + "`"
}
