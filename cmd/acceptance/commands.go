package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"acceptcli/internal/config"
	apperrors "acceptcli/internal/errors"
	"acceptcli/internal/files"
	"acceptcli/internal/operations"
	"acceptcli/internal/validation"
	"acceptcli/pkg/contracts"
)

// options holds the flags shared by every command
type options struct {
	ConfigFile string
	LogLevel   string
	Recompute  bool
	OutputDir  string
}

// newRootCommand creates the acceptance command tree
func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "acceptance",
		Short:   "Travel model acceptance criteria",
		Version: contracts.GetBuildInfo().String(),
		Long: `Acceptance compares a travel model scenario against field observations.

It reduces observed counts, surveys and census flows and the simulated
roadway and transit outputs to common keys, joins them per criterion and
writes comparison GeoJSON, CSV and XLSX artifacts with summary statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "acceptance.yaml", "run configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.SetVersionTemplate("acceptance {{.Version}}\n")

	rootCmd.AddCommand(newRunCommand(opts), newValidateCommand(opts), newStatusCommand(opts))
	return rootCmd
}

func newRunCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every acceptance criterion and write the artifacts",
		Long: `Run loads the identity registries and crosswalks, reduces the observed
and simulated tables, compares them per criterion and writes the artifacts.

Reduced tables are cached as JSON in the cache directory and reused by later
runs unless --recompute is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifest, err := runAcceptance(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), manifest)
		},
	}

	cmd.Flags().BoolVar(&opts.Recompute, "recompute", false, "ignore cached artifacts and rebuild every table")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "output directory (overrides config)")
	return cmd
}

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and that every input file exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			inputs := validation.Inputs(cfg)
			if err := validation.NewFileValidator(nil).ValidateInputs(inputs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d input files OK\n", len(inputs))
			return nil
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the manifest of the last completed run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			path := cfg.GetPaths().ManifestJSON
			if !config.FileExists(path) {
				return apperrors.NewStorageError("no completed run found", nil).WithContext("path", path)
			}
			manifest, err := operations.LoadRunManifest(path)
			if err != nil {
				return apperrors.NewStorageError("failed to load run manifest", err).WithContext("path", path)
			}
			return printStatus(cmd.OutOrStdout(), manifest)
		},
	}
}

// loadConfig loads the configuration file and applies flag overrides
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.Recompute {
		cfg.Run.Recompute = true
	}
	if opts.OutputDir != "" {
		cfg.Run.OutputDir = opts.OutputDir
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	return cfg, nil
}

// printStatus writes the run header and cache state of a saved manifest
// followed by its criterion summary
func printStatus(w io.Writer, m *operations.RunManifest) error {
	fmt.Fprintf(w, "Run %s %s (scenario %s)\n", m.RunID, m.Status, m.Scenario)
	fmt.Fprintf(w, "Built by acceptance %s\n", m.Build)
	if m.EndTime != nil {
		fmt.Fprintf(w, "Finished %s after %s\n",
			m.EndTime.Format(time.RFC3339), m.EndTime.Sub(m.StartTime).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Cache %s: %d artifacts", m.Cache.Dir, len(m.Cache.Artifacts))
	if latest, ok := files.LatestArtifact(m.Cache.Artifacts); ok {
		fmt.Fprintf(w, ", newest %s at %s", latest.Name, latest.ModTime.Format(time.RFC3339))
	}
	fmt.Fprint(w, "\n\n")
	return printSummary(w, m)
}

// printSummary writes one line per criterion of a finished run
func printSummary(w io.Writer, m *operations.RunManifest) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CRITERION\tNAME\tRECORDS\tMATCHED\tOBS ONLY\tSIM ONLY\tRESULT")
	for _, c := range m.Criteria {
		result := "pass"
		if !c.Passed {
			result = "fail"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
			c.Number, c.Name, c.Records, c.Matched, c.ObservedOnly, c.SimulatedOnly, result)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nRun %s wrote %d artifacts\n", m.RunID, len(m.Outputs))
	return err
}
