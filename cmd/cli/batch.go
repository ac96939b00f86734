package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"cutvalid/adapters/db/postgres/migrations"
	"cutvalid/adapters/latex"
	"cutvalid/adapters/postgres"
	"cutvalid/app"
	"cutvalid/domain/delta"
	"cutvalid/domain/run"

	"github.com/spf13/cobra"
)

func newBatchCmd(g *globals) *cobra.Command {
	var (
		pattern string
		workers int
		store   bool
	)

	cmd := &cobra.Command{
		Use:   "batch [dirs or files...]",
		Short: "Validate every matching file and export the results",
		Long: `Validate every file matching the input pattern under the given directories
(default $INPUT_DIRS), write the configured output formats and, with --store,
persist the run to $DATABASE_URL.

Example: cutvalid batch data/2f data/ww --lumi 2000 --store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := g.container
			cfg := c.Config
			if cmd.Flags().Changed("pattern") {
				cfg.Input.Pattern = pattern
			}
			if cmd.Flags().Changed("workers") {
				cfg.Input.Workers = workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			roots := args
			if len(roots) == 0 {
				roots = cfg.Input.Dirs
			}
			paths, err := app.DiscoverFiles(roots, cfg.Input.Pattern)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no files matching %q under %v", cfg.Input.Pattern, roots)
			}

			if store {
				if cfg.Database.URL == "" {
					return fmt.Errorf("--store needs DATABASE_URL")
				}
				db, err := postgres.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.URL)
				if err != nil {
					return err
				}
				if _, err := migrations.NewMigrator(db, c.Logger).Up(cmd.Context()); err != nil {
					db.Close()
					return err
				}
				if err := c.InitWithDatabase(cmd.Context(), db); err != nil {
					db.Close()
					return err
				}
			} else {
				c.Runner = app.NewBatchRunner(c.Service, cfg.Input.Workers, c.Sinks, c.Metrics, c.Logger)
			}

			result, runErr := c.Runner.Run(cmd.Context(), paths)
			if result != nil {
				if g.jsonOut {
					if err := writeJSON(cmd.OutOrStdout(), result.Summary()); err != nil {
						return err
					}
				} else if err := printRun(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			if result.Status == run.StatusFailed {
				return fmt.Errorf("all %d files failed", len(result.Failures))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "glob for input files (default $FILE_PATTERN)")
	cmd.Flags().IntVar(&workers, "workers", 0, "files processed concurrently (default $WORKERS)")
	cmd.Flags().BoolVar(&store, "store", false, "persist the run to the results database")
	return cmd
}

func printRun(w io.Writer, result *run.Result) error {
	fmt.Fprintf(w, "run %s: %s, %d ok, %d failed\n\n", result.RunID(), result.Status, len(result.Files), len(result.Failures))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "file\tbins\twarnings\tmax par/cut (all points)\t")
	for _, fr := range result.Files {
		bins, maxChi2 := 0, "-"
		if fr.ChiSquared != nil {
			bins = fr.ChiSquared.NBins
			if dr, ok := fr.ChiSquared.Direction(delta.AllPoints); ok && dr.ParVsCut.N > 0 {
				maxChi2 = num(dr.ParVsCut.Max)
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t\n", fr.BaseName, bins, len(fr.Warnings()), maxChi2)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(tw, "%s\tFAILED\t%s\t\t\n", filepath.Base(f.Path), f.Code)
	}
	return tw.Flush()
}

func newFramesCmd(g *globals) *cobra.Command {
	var (
		output string
		width  string
		format string
	)

	cmd := &cobra.Command{
		Use:   "frames NAME=DIR...",
		Short: "Write Beamer frames for the deviation plots of each input group",
		Long: `Write one Beamer frame per input file, coordinate and axis direction. Each NAME=DIR
argument becomes a group whose figures are referenced through the \NAMEPath macro.

Example: cutvalid frames Difermion=data/2f WW=data/ww -o Frames.tex`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.container.Config
			var groups []latex.Group
			for _, arg := range args {
				macro, dir, err := latex.ParseGroup(arg)
				if err != nil {
					return err
				}
				paths, err := app.DiscoverFiles([]string{dir}, cfg.Input.Pattern)
				if err != nil {
					return err
				}
				group, err := latex.ScanGroup(macro, paths)
				if err != nil {
					return err
				}
				groups = append(groups, group)
			}

			opts := latex.Options{Width: width, Format: format}
			if output == "-" {
				return latex.Write(cmd.OutOrStdout(), groups, opts)
			}
			if err := latex.WriteFile(output, groups, opts); err != nil {
				return err
			}
			g.container.Logger.Info("Wrote frames to %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "out", "o", "Frames.tex", "output file, - for stdout")
	cmd.Flags().StringVar(&width, "width", latex.DefaultWidth, "figure width")
	cmd.Flags().StringVar(&format, "format", latex.DefaultFormat, "figure file extension")
	return cmd
}
