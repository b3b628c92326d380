package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/paiml/depyler/internal/driver"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file.py|directory>",
	Short: "Run the translation pipeline without writing output",
	Long: `Check translates sources in memory and reports every diagnostic,
exiting nonzero when any file has errors. Nothing is written to disk.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	checkCmd.Flags().String("format", "pretty", "diagnostic format (pretty|json|sarif)")
	registerTranspileFlags(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	st, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	startDir := inputPath
	if !st.IsDir() {
		startDir = filepath.Dir(inputPath)
	}
	opts, _, err := buildOptions(cmd, startDir)
	if err != nil {
		return err
	}

	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer traceCleanup()

	if !st.IsDir() {
		res, err := driver.TranspileFile(cmd.Context(), inputPath, opts)
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		if res.Bag.Len() > 0 {
			if err := renderDiagnostics(cmd, os.Stdout, format, res.Bag, res.FileSet); err != nil {
				return err
			}
		}
		if res.Bag.HasErrors() {
			return fmt.Errorf("check found errors")
		}
		if !quiet {
			fmt.Fprintf(os.Stdout, "%s: ok\n", inputPath)
		}
		return nil
	}

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	results, err := driver.TranspileDir(cmd.Context(), inputPath, opts, driver.BatchOptions{Jobs: jobs})
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	failed := 0
	for _, fr := range results {
		if fr.Result.Bag.Len() > 0 {
			if err := renderDiagnostics(cmd, os.Stdout, format, fr.Result.Bag, fr.Result.FileSet); err != nil {
				return err
			}
		}
		if fr.Err != nil || fr.Result.Bag.HasErrors() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	if !quiet {
		fmt.Fprintf(os.Stdout, "%d files ok\n", len(results))
	}
	return nil
}
