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

var depsCmd = &cobra.Command{
	Use:   "deps [flags] <file.py|directory>",
	Short: "Report the external crates the translation needs",
	Long: `Deps translates sources in memory and lists every crate the mapped
imports pull in. With --cargo the full Cargo.toml is printed instead,
ready to drop next to the emitted Rust.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().Bool("cargo", false, "print a rendered Cargo.toml instead of the list")
	registerTranspileFlags(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	cargo, err := cmd.Flags().GetBool("cargo")
	if err != nil {
		return fmt.Errorf("failed to get cargo flag: %w", err)
	}

	st, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	var deps []modmap.Dependency
	var name, sourceFile string

	if st.IsDir() {
		opts, _, err := buildOptions(cmd, inputPath)
		if err != nil {
			return err
		}
		results, err := driver.TranspileDir(cmd.Context(), inputPath, opts, driver.BatchOptions{})
		if err != nil {
			return fmt.Errorf("deps failed: %w", err)
		}
		for _, fr := range results {
			if fr.Result.Bag.HasErrors() {
				if err := renderDiagnostics(cmd, os.Stderr, "pretty", fr.Result.Bag, fr.Result.FileSet); err != nil {
					return err
				}
				return fmt.Errorf("deps failed with errors")
			}
			deps = mergeDependencies(deps, fr.Result.Dependencies)
		}
		name = filepath.Base(inputPath)
		sourceFile = "main.rs"
	} else {
		opts, _, err := buildOptions(cmd, filepath.Dir(inputPath))
		if err != nil {
			return err
		}
		res, err := driver.TranspileFile(cmd.Context(), inputPath, opts)
		if err != nil {
			return fmt.Errorf("deps failed: %w", err)
		}
		if res.Bag.HasErrors() {
			if err := renderDiagnostics(cmd, os.Stderr, "pretty", res.Bag, res.FileSet); err != nil {
				return err
			}
			return fmt.Errorf("deps failed with errors")
		}
		deps = res.Dependencies
		name = strings.TrimSuffix(filepath.Base(inputPath), ".py")
		sourceFile = name + ".rs"
	}

	if cargo {
		text, err := modmap.CargoManifest(name, sourceFile, deps)
		if err != nil {
			return fmt.Errorf("failed to render Cargo.toml: %w", err)
		}
		fmt.Fprint(os.Stdout, text)
		return nil
	}

	if len(deps) == 0 {
		fmt.Fprintln(os.Stdout, "no external crates required")
		return nil
	}
	for _, d := range deps {
		line := fmt.Sprintf("%s = %s", d.Crate, d.Version)
		if len(d.Features) > 0 {
			line += fmt.Sprintf(" (features: %s)", strings.Join(d.Features, ", "))
		}
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}
