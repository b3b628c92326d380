package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiml/depyler/internal/driver"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the transpile disk cache",
	Long: `Remove every cached translation. The next run rebuilds entries from
scratch. The learned pattern store lives elsewhere and is not touched.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().String("cache-dir", envOr("DEPYLER_CACHE_DIR", ""), "cache directory override")
}

func runClean(cmd *cobra.Command, _ []string) error {
	dir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return fmt.Errorf("failed to get cache-dir flag: %w", err)
	}

	var disk *driver.DiskCache
	if dir != "" {
		disk, err = driver.OpenDiskCacheAt(dir)
	} else {
		disk, err = driver.OpenDiskCache("depyler")
	}
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	root := disk.Dir()
	if err := disk.DropAll(); err != nil {
		return fmt.Errorf("failed to remove cache: %w", err)
	}
	fmt.Fprintf(os.Stdout, "removed %s\n", root)
	return nil
}
