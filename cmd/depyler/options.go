package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiml/depyler/internal/annotations"
	"github.com/paiml/depyler/internal/driver"
	"github.com/paiml/depyler/internal/observ"
	"github.com/paiml/depyler/internal/project"
	"github.com/paiml/depyler/internal/types"
)

// registerTranspileFlags installs the option flags shared by every
// command that runs the pipeline.
func registerTranspileFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("nasa", false, "restrict output to the Rust standard library")
	cmd.Flags().String("opt-level", "", "optimization profile (debug|release|size)")
	cmd.Flags().String("string-strategy", "", "string type default (always_owned|infer_borrowing|cow)")
	cmd.Flags().String("hash-strategy", "", "map hasher default (standard|fnv|ahash)")
	cmd.Flags().String("ownership", "", "ownership default (owned|borrowed|shared)")
	cmd.Flags().String("int-width", "", "integer width for Python int (i64|i32|isize)")
	cmd.Flags().Bool("emit-tests", false, "append doctest-derived tests to the output")
	cmd.Flags().String("mapper-config", envOr("DEPYLER_MAPPER_CONFIG", ""), "module mapping overlay (TOML)")
}

// buildOptions layers option sources for one invocation: manifest values
// under startDir first, then explicitly set flags on top.
func buildOptions(cmd *cobra.Command, startDir string) (driver.Options, *project.Manifest, error) {
	var opts driver.Options

	manifest, found, err := project.LoadFrom(startDir)
	if err != nil {
		return opts, nil, err
	}
	if found {
		opts, err = manifest.Options()
		if err != nil {
			return opts, nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("nasa") {
		if opts.NasaMode, err = flags.GetBool("nasa"); err != nil {
			return opts, nil, err
		}
	}
	if flags.Changed("emit-tests") {
		if opts.EmitTests, err = flags.GetBool("emit-tests"); err != nil {
			return opts, nil, err
		}
	}
	if flags.Changed("opt-level") {
		v, err := flags.GetString("opt-level")
		if err != nil {
			return opts, nil, err
		}
		if opts.OptimizationLevel, err = driver.ParseOptLevel(v); err != nil {
			return opts, nil, err
		}
	}
	if flags.Changed("string-strategy") {
		v, err := flags.GetString("string-strategy")
		if err != nil {
			return opts, nil, err
		}
		if opts.StringStrategy, err = types.ParseStringMode(v); err != nil {
			return opts, nil, err
		}
	}
	if flags.Changed("hash-strategy") {
		v, err := flags.GetString("hash-strategy")
		if err != nil {
			return opts, nil, err
		}
		if opts.HashStrategy, err = annotations.ParseHashStrategy(v); err != nil {
			return opts, nil, err
		}
	}
	if flags.Changed("ownership") {
		v, err := flags.GetString("ownership")
		if err != nil {
			return opts, nil, err
		}
		if opts.OwnershipModel, err = annotations.ParseOwnership(v); err != nil {
			return opts, nil, err
		}
	}
	if flags.Changed("int-width") {
		v, err := flags.GetString("int-width")
		if err != nil {
			return opts, nil, err
		}
		if opts.IntWidth, err = types.ParseIntWidth(v); err != nil {
			return opts, nil, err
		}
	}
	if flags.Changed("mapper-config") {
		if opts.MapperConfigPath, err = flags.GetString("mapper-config"); err != nil {
			return opts, nil, err
		}
	} else if opts.MapperConfigPath == "" {
		opts.MapperConfigPath = envOr("DEPYLER_MAPPER_CONFIG", "")
	}

	rootFlags := cmd.Root().PersistentFlags()
	if rootFlags.Changed("max-diagnostics") || opts.MaxDiagnostics <= 0 {
		if opts.MaxDiagnostics, err = rootFlags.GetInt("max-diagnostics"); err != nil {
			return opts, nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
	}

	timings, err := rootFlags.GetBool("timings")
	if err != nil {
		return opts, nil, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if timings {
		opts.Timer = observ.NewTimer()
	}

	if !found {
		manifest = nil
	}
	return opts, manifest, nil
}

// openCache builds the two-tier cache honoring --no-cache and
// --cache-dir. A broken cache degrades to running without one.
func openCache(cmd *cobra.Command, quiet bool) (*driver.Cache, error) {
	if cmd.Flags().Lookup("no-cache") != nil {
		noCache, err := cmd.Flags().GetBool("no-cache")
		if err != nil {
			return nil, err
		}
		if noCache {
			return nil, nil
		}
	}

	dir := ""
	if cmd.Flags().Lookup("cache-dir") != nil {
		var err error
		if dir, err = cmd.Flags().GetString("cache-dir"); err != nil {
			return nil, err
		}
	}

	var disk *driver.DiskCache
	var err error
	if dir != "" {
		disk, err = driver.OpenDiskCacheAt(dir)
	} else {
		disk, err = driver.OpenDiskCache("depyler")
	}
	if err != nil {
		if !quiet {
			fmt.Fprintf(os.Stderr, "warning: cache disabled: %v\n", err)
		}
		disk = nil
	}
	cache, err := driver.NewCache(0, disk)
	if err != nil {
		return nil, err
	}
	return cache, nil
}
