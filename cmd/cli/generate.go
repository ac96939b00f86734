package main

import (
	"fmt"

	"cutvalid/internal/testkit"

	"github.com/spf13/cobra"
)

func newGenerateCmd(g *globals) *cobra.Command {
	cfg := testkit.DefaultGeneratorConfig()
	var count int

	cmd := &cobra.Command{
		Use:   "generate <dir>",
		Short: "Write synthetic validation files for trying out the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := cfg.Name
			for i := 0; i < count; i++ {
				fileCfg := cfg
				fileCfg.Seed = cfg.Seed + int64(i)
				if count > 1 {
					fileCfg.Name = fmt.Sprintf("%s_%02d", base, i+1)
				}
				path, err := testkit.NewGenerator(fileCfg).WriteFile(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Name, "name", cfg.Name, "process name, used as file base name")
	cmd.Flags().IntVar(&count, "count", 1, "number of files, seeded consecutively")
	cmd.Flags().IntVar(&cfg.Bins, "bins", cfg.Bins, "number of bins")
	cmd.Flags().Float64Var(&cfg.Delta, "delta", cfg.Delta, "grid step")
	cmd.Flags().Float64Var(&cfg.ParBias, "par-bias", cfg.ParBias, "relative spread of the parametrised counts")
	cmd.Flags().BoolVar(&cfg.Coordinates, "coordinates", cfg.Coordinates, "include coordinate metadata")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	return cmd
}
