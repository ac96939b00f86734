// Package latex writes Beamer frames that lay out the deviation plots of each
// validation file side by side.
package latex

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"cutvalid/adapters/csvmeta"
	"cutvalid/domain/delta"
	"cutvalid/domain/metadata"
	"cutvalid/internal/errors"
	"cutvalid/internal/naming"
)

// DefaultWidth fits three figures on one frame
const DefaultWidth = `\thirdfraction\textwidth`

// DefaultFormat is the figure file extension
const DefaultFormat = "pdf"

// DefaultDirections are the axes in file-name order
var DefaultDirections = []delta.Direction{delta.Center, delta.LowerEdge, delta.UpperEdge, delta.Width}

// Entry is one figure set: an input base name and, for files with coordinate
// metadata, one of its coordinate names.
type Entry struct {
	Base  string
	Coord string
}

// Group is a set of entries whose figures live under one LaTeX path macro
type Group struct {
	// Macro is the path command, e.g. \WWPath.
	Macro   string
	Entries []Entry
}

// ParseGroup reads NAME=DIR into the macro \NAMEPath and the directory
func ParseGroup(arg string) (string, string, error) {
	name, dir, ok := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.TrimSpace(dir) == "" {
		return "", "", errors.ConfigInvalid("frame group must be NAME=DIR, got " + arg)
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return "", "", errors.ConfigInvalid("frame group name must be letters only, got " + name)
		}
	}
	return `\` + name + "Path", strings.TrimSpace(dir), nil
}

// ScanGroup reads the metadata of each file and yields one entry per coordinate
// listed in CoordName. Files without coordinates give a single entry.
func ScanGroup(macro string, paths []string) (Group, error) {
	g := Group{Macro: macro}
	for _, p := range paths {
		header, err := csvmeta.ParseMetadataFile(p)
		if err != nil {
			return Group{}, err
		}
		base := naming.BaseName(p)
		v, ok := header.Metadata.Get(metadata.KeyCoordName)
		if !ok {
			g.Entries = append(g.Entries, Entry{Base: base})
			continue
		}
		coords, err := v.Array.Strings()
		if err != nil {
			return Group{}, errors.MalformedInput("%s: %s: %v", p, metadata.KeyCoordName, err)
		}
		for _, c := range coords {
			g.Entries = append(g.Entries, Entry{Base: base, Coord: c})
		}
	}
	g.normalise()
	return g, nil
}

// normalise sorts entries by base name, keeping coordinate order, and drops repeats
func (g *Group) normalise() {
	sort.SliceStable(g.Entries, func(i, j int) bool {
		return g.Entries[i].Base < g.Entries[j].Base
	})
	seen := make(map[Entry]bool, len(g.Entries))
	out := g.Entries[:0]
	for _, e := range g.Entries {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	g.Entries = out
}

// Options controls frame layout
type Options struct {
	Width      string
	Format     string
	Directions []delta.Direction
}

func (o Options) withDefaults() Options {
	if o.Width == "" {
		o.Width = DefaultWidth
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if len(o.Directions) == 0 {
		o.Directions = DefaultDirections
	}
	return o
}

// Frame is one Beamer frame: the figure paths it includes
type Frame struct {
	Figures []string
}

// Frames lists one frame per entry and direction, groups in order
func Frames(groups []Group, opts Options) ([]Frame, error) {
	opts = opts.withDefaults()
	for _, d := range opts.Directions {
		if _, err := d.Project(delta.Pair{}); err != nil {
			return nil, errors.Wrap(err, "frames need an axis direction")
		}
	}

	var frames []Frame
	for _, g := range groups {
		for _, e := range g.Entries {
			for _, d := range opts.Directions {
				frames = append(frames, Frame{Figures: []string{
					figure(g.Macro, naming.KindCutEffect, e, nil, opts.Format),
					figure(g.Macro, naming.KindDevCutCut0, e, &d, opts.Format),
					figure(g.Macro, naming.KindDevParCut, e, &d, opts.Format),
				}})
			}
		}
	}
	return frames, nil
}

func figure(macro string, kind naming.Kind, e Entry, d *delta.Direction, format string) string {
	return macro + "/" + string(kind) + "/" + naming.FileName(e.Base, e.Coord, kind, d, format)
}

var frameTemplate = template.Must(template.New("frames").Delims("<<", ">>").Parse(
	`<<range .Frames>>\begin{frame}
<<range .Figures>>\includegraphics[width=<<$.Width>>]{<<.>>}
<<end>>\end{frame}

<<end>>`))

// Write renders the frames of groups to w
func Write(w io.Writer, groups []Group, opts Options) error {
	opts = opts.withDefaults()
	frames, err := Frames(groups, opts)
	if err != nil {
		return err
	}
	data := struct {
		Width  string
		Frames []Frame
	}{Width: opts.Width, Frames: frames}
	if err := frameTemplate.Execute(w, data); err != nil {
		return errors.Wrap(err, "failed to render frames")
	}
	return nil
}

// WriteFile renders the frames to path, creating parent directories
func WriteFile(path string, groups []Group, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := Write(f, groups, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
