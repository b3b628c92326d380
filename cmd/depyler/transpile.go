package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paiml/depyler/internal/driver"
	"github.com/paiml/depyler/internal/modmap"
)

var transpileCmd = &cobra.Command{
	Use:   "transpile [flags] <file.py|directory>",
	Short: "Translate Python sources to Rust",
	Long: `Transpile translates one Python file or every *.py file under a
directory into Rust, writing .rs files next to the sources or under the
output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranspile,
}

func init() {
	transpileCmd.Flags().StringP("output", "o", "", "output file or directory (default: next to sources)")
	transpileCmd.Flags().Bool("cargo", false, "also write a Cargo.toml for the emitted crate")
	transpileCmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	transpileCmd.Flags().String("ui", "auto", "progress display for directory mode (auto|on|off)")
	transpileCmd.Flags().Bool("no-cache", false, "bypass the translation cache")
	transpileCmd.Flags().String("cache-dir", envOr("DEPYLER_CACHE_DIR", ""), "cache location (default: user cache dir)")
	transpileCmd.Flags().String("format", "pretty", "diagnostic format (pretty|json|sarif)")
	transpileCmd.Flags().Bool("force", false, "overwrite existing output files")
	registerTranspileFlags(transpileCmd)
}

func runTranspile(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}
	cargo, err := cmd.Flags().GetBool("cargo")
	if err != nil {
		return fmt.Errorf("failed to get cargo flag: %w", err)
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
	opts, manifest, err := buildOptions(cmd, startDir)
	if err != nil {
		return err
	}
	if opts.Cache, err = openCache(cmd, quiet); err != nil {
		return err
	}
	if output == "" && manifest != nil {
		output = manifest.OutputDir()
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
		return transpileOne(cmd, inputPath, output, format, opts, force, cargo, quiet)
	}
	return transpileTree(cmd, inputPath, output, format, opts, force, cargo, quiet)
}

func transpileOne(cmd *cobra.Command, path, output, format string, opts driver.Options, force, cargo, quiet bool) error {
	res, err := driver.TranspileFile(cmd.Context(), path, opts)
	if err != nil {
		return fmt.Errorf("transpilation failed: %w", err)
	}

	if res.Bag.Len() > 0 {
		if err := renderDiagnostics(cmd, os.Stderr, format, res.Bag, res.FileSet); err != nil {
			return err
		}
	}
	if res.Bag.HasErrors() {
		return fmt.Errorf("transpilation failed with errors")
	}

	outPath := resolveOutputPath(path, output)
	if err := driver.WriteOutput(outPath, res.Rust, force); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(os.Stdout, "wrote %s", outPath)
		if res.CacheHit {
			fmt.Fprintf(os.Stdout, " (cached)")
		}
		fmt.Fprintln(os.Stdout)
	}

	if cargo {
		return writeCargoManifest(outPath, res.Dependencies, force, quiet)
	}
	return nil
}

func transpileTree(cmd *cobra.Command, dir, output, format string, opts driver.Options, force, cargo, quiet bool) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	batch := driver.BatchOptions{Jobs: jobs}
	var results []driver.FileResult
	if shouldUseTUI(uiModeValue) {
		results, err = runTranspileDirWithUI(cmd.Context(), "depyler transpile", dir, opts, batch)
	} else {
		results, err = driver.TranspileDir(cmd.Context(), dir, opts, batch)
	}
	if err != nil {
		return fmt.Errorf("transpilation failed: %w", err)
	}
	if len(results) == 0 {
		if !quiet {
			fmt.Fprintln(os.Stdout, "no Python files found")
		}
		return nil
	}

	failed := 0
	var deps []modmap.Dependency
	var firstOut string
	for _, fr := range results {
		if fr.Result.Bag.Len() > 0 {
			if err := renderDiagnostics(cmd, os.Stderr, format, fr.Result.Bag, fr.Result.FileSet); err != nil {
				return err
			}
		}
		if fr.Err != nil || fr.Result.Bag.HasErrors() {
			failed++
			continue
		}

		outPath := resolveOutputPath(fr.Path, output)
		if err := driver.WriteOutput(outPath, fr.Result.Rust, force); err != nil {
			return err
		}
		if firstOut == "" {
			firstOut = outPath
		}
		deps = mergeDependencies(deps, fr.Result.Dependencies)
		if !quiet {
			fmt.Fprintf(os.Stdout, "wrote %s", outPath)
			if fr.Result.CacheHit {
				fmt.Fprintf(os.Stdout, " (cached)")
			}
			fmt.Fprintln(os.Stdout)
		}
	}

	if cargo && firstOut != "" {
		if err := writeCargoManifest(firstOut, deps, force, quiet); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// resolveOutputPath maps one source to its output location. A .rs output
// argument names the file directly; anything else is a directory.
func resolveOutputPath(src, output string) string {
	if strings.HasSuffix(output, ".rs") {
		return output
	}
	return driver.OutputPath(src, output)
}

// writeCargoManifest renders Cargo.toml next to the emitted Rust file.
func writeCargoManifest(rustPath string, deps []modmap.Dependency, force, quiet bool) error {
	name := strings.TrimSuffix(filepath.Base(rustPath), ".rs")
	text, err := modmap.CargoManifest(name, filepath.Base(rustPath), deps)
	if err != nil {
		return fmt.Errorf("failed to render Cargo.toml: %w", err)
	}
	manifestPath := filepath.Join(filepath.Dir(rustPath), "Cargo.toml")
	if err := driver.WriteOutput(manifestPath, text, force); err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(os.Stdout, "wrote %s\n", manifestPath)
	}
	return nil
}

func mergeDependencies(into, add []modmap.Dependency) []modmap.Dependency {
	for _, d := range add {
		seen := false
		for _, have := range into {
			if have.Crate == d.Crate {
				seen = true
				break
			}
		}
		if !seen {
			into = append(into, d)
		}
	}
	return into
}
