package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RMahshie/ramanspec/internal/config"
	"github.com/RMahshie/ramanspec/internal/output"
	"github.com/RMahshie/ramanspec/internal/pipeline"
)

// flag name -> configuration key
var flagKeys = map[string]string{
	"grid-min":            "GRID_MIN",
	"grid-max":            "GRID_MAX",
	"grid-steps":          "GRID_STEPS",
	"lorentzian-width":    "LORENTZIAN_WIDTH",
	"gaussian-width":      "GAUSSIAN_WIDTH",
	"lorentzian-fraction": "LORENTZIAN_FRACTION",
	"policy":              "MISSING_DATA_POLICY",
	"drop-leading":        "DROP_LEADING_TRANSITIONS",
	"blended":             "WRITE_BLENDED",
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	root := &cobra.Command{
		Use:          "ramanspec",
		Short:        "Broaden Raman lines from Gaussian logs into spectra",
		Long:         `ramanspec extracts discrete Raman lines from Gaussian output and writes Lorentzian and Gaussian broadened spectra as CSV next to the log.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			for name, key := range flagKeys {
				f := cmd.Flags().Lookup(name)
				if f == nil {
					continue
				}
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("failed to bind %s: %w", name, err)
				}
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.Float64("grid-min", v.GetFloat64("GRID_MIN"), "first grid point in cm^-1")
	pf.Float64("grid-max", v.GetFloat64("GRID_MAX"), "last grid point in cm^-1")
	pf.Int("grid-steps", v.GetInt("GRID_STEPS"), "number of grid points")
	pf.Float64("lorentzian-width", v.GetFloat64("LORENTZIAN_WIDTH"), "Lorentzian half-width in cm^-1")
	pf.Float64("gaussian-width", v.GetFloat64("GAUSSIAN_WIDTH"), "Gaussian standard deviation in cm^-1")
	pf.Float64("lorentzian-fraction", v.GetFloat64("LORENTZIAN_FRACTION"), "Lorentzian share of the blended spectrum (0..1)")
	pf.String("policy", v.GetString("MISSING_DATA_POLICY"), "missing activity handling (zero-fill|fail-fast|interpolate)")
	pf.Bool("blended", v.GetBool("WRITE_BLENDED"), "also write the blended spectrum")
	pf.Bool("plot", false, "report spectrum peaks in the log")
	pf.BoolP("verbose", "v", false, "debug logging")

	nonresonant := &cobra.Command{
		Use:   "nonresonant [flags] file.log...",
		Short: "Broaden the Energy/Sigma transition listing",
		Long:  `Reads the Energy/Sigma pairs between "Information on Transitions" and "Final Spectrum" and writes <stem>_rrcross.csv and the <stem>_rrspec_* spectra.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, plotter, err := runConfig(cmd, v)
			if err != nil {
				return err
			}
			for _, path := range args {
				out, err := pipeline.RunNonResonantFile(cmd.Context(), path, cfg, plotter)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				report(cmd, path, out.Artifacts, len(out.Warnings))
			}
			return nil
		},
	}
	nonresonant.Flags().Int("drop-leading", v.GetInt("DROP_LEADING_TRANSITIONS"), "transitions to drop from the start of the listing")

	resonance := &cobra.Command{
		Use:   "resonance [flags] file.log...",
		Short: "Broaden the RamAct listing, one column per incident light",
		Long:  `Reads the incident light frequencies and the RamAct rows of every frequency block and writes <stem>_nrrcross.csv and the <stem>_nrrspec_* spectra.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, plotter, err := runConfig(cmd, v)
			if err != nil {
				return err
			}
			for _, path := range args {
				out, err := pipeline.RunResonantFile(cmd.Context(), path, cfg, plotter)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				report(cmd, path, out.Artifacts, len(out.Warnings))
			}
			return nil
		},
	}

	root.AddCommand(nonresonant, resonance)
	return root
}

func runConfig(cmd *cobra.Command, v *viper.Viper) (pipeline.Config, output.Plotter, error) {
	cfg, err := config.LoadFrom(v, ".")
	if err != nil {
		return pipeline.Config{}, nil, err
	}
	pc, err := cfg.Spectrum.Pipeline()
	if err != nil {
		return pipeline.Config{}, nil, err
	}

	var plotter output.Plotter = output.NopPlotter{}
	if plot, _ := cmd.Flags().GetBool("plot"); plot {
		plotter = output.LogPlotter{}
	}
	logFlags(cmd.Flags())
	return pc, plotter, nil
}

func report(cmd *cobra.Command, path string, artifacts []string, warnings int) {
	log.Info().Str("log", path).Int("warnings", warnings).Msg("Spectra written")
	for _, a := range artifacts {
		fmt.Fprintln(cmd.OutOrStdout(), a)
	}
}

func logFlags(fs *pflag.FlagSet) {
	ev := log.Debug()
	fs.Visit(func(f *pflag.Flag) {
		ev = ev.Str(f.Name, f.Value.String())
	})
	ev.Msg("Flags set")
}
