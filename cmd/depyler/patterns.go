package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/paiml/depyler/internal/telemetry"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect the learned rewrite pattern store",
}

var patternsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "List stored patterns with their statistics",
	Args:  cobra.NoArgs,
	RunE:  runPatternsReport,
}

var patternsDistillCmd = &cobra.Command{
	Use:   "distill",
	Short: "Render trusted patterns as candidate dispatch rules",
	Long: `Distill filters the store through the review thresholds and prints
the survivors as dispatch-table arms. The output is a fragment for human
review; accepted arms get pasted into the generator tables.`,
	Args: cobra.NoArgs,
	RunE: runPatternsDistill,
}

func init() {
	def := telemetry.DefaultThresholds()
	patternsReportCmd.Flags().String("store", "", "pattern store file (default: user data dir)")
	patternsDistillCmd.Flags().String("store", "", "pattern store file (default: user data dir)")
	patternsDistillCmd.Flags().Float64("confidence", def.Confidence, "minimum confidence to surface a pattern")
	patternsDistillCmd.Flags().Int("min-usage", def.Usage, "minimum recorded uses")
	patternsDistillCmd.Flags().Float64("min-success", def.Success, "minimum success rate")

	patternsCmd.AddCommand(patternsReportCmd)
	patternsCmd.AddCommand(patternsDistillCmd)
}

// patternStorePath resolves the store location. Patterns are learned data,
// not cache: they live under the data dir so `depyler clean` leaves them
// alone.
func patternStorePath(cmd *cobra.Command) (string, error) {
	storePath, err := cmd.Flags().GetString("store")
	if err != nil {
		return "", fmt.Errorf("failed to get store flag: %w", err)
	}
	if storePath != "" {
		return storePath, nil
	}
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "depyler", "patterns.mp"), nil
}

func runPatternsReport(cmd *cobra.Command, _ []string) error {
	path, err := patternStorePath(cmd)
	if err != nil {
		return err
	}
	store, err := telemetry.OpenDiskStore(path)
	if err != nil {
		return fmt.Errorf("failed to open pattern store: %w", err)
	}

	patterns := store.All()
	if len(patterns) == 0 {
		fmt.Fprintf(os.Stdout, "pattern store %s is empty\n", store.Path())
		return nil
	}

	fmt.Fprintf(os.Stdout, "%d patterns in %s\n\n", len(patterns), store.Path())
	for _, p := range patterns {
		fmt.Fprintf(os.Stdout, "%s  confidence %.3f  uses %d  success %.3f\n",
			p.ID, p.Confidence, p.UsageCount, p.SuccessRate)
		fmt.Fprintf(os.Stdout, "    %s => %s\n", p.SourcePattern, p.TargetOutput)
		if p.ErrorPrevented != "" {
			fmt.Fprintf(os.Stdout, "    prevents %s\n", p.ErrorPrevented)
		}
	}
	return nil
}

func runPatternsDistill(cmd *cobra.Command, _ []string) error {
	path, err := patternStorePath(cmd)
	if err != nil {
		return err
	}

	th := telemetry.DefaultThresholds()
	if th.Confidence, err = cmd.Flags().GetFloat64("confidence"); err != nil {
		return fmt.Errorf("failed to get confidence flag: %w", err)
	}
	if th.Usage, err = cmd.Flags().GetInt("min-usage"); err != nil {
		return fmt.Errorf("failed to get min-usage flag: %w", err)
	}
	if th.Success, err = cmd.Flags().GetFloat64("min-success"); err != nil {
		return fmt.Errorf("failed to get min-success flag: %w", err)
	}

	store, err := telemetry.OpenDiskStore(path)
	if err != nil {
		return fmt.Errorf("failed to open pattern store: %w", err)
	}

	distilled := telemetry.Distill(store, th)
	fmt.Fprint(os.Stdout, telemetry.RenderStubs(distilled, th))
	return nil
}
