package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/diagfmt"
	"github.com/paiml/depyler/internal/source"
	"github.com/paiml/depyler/internal/version"
)

// resolveColor applies the --color flag against the target stream.
func resolveColor(cmd *cobra.Command, f *os.File) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	return colorFlag == "on" || (colorFlag == "auto" && isTerminal(f)), nil
}

// renderDiagnostics writes one bag in the requested format. Pretty output
// honors --color when w is the attached stream.
func renderDiagnostics(cmd *cobra.Command, w io.Writer, format string, bag *diag.Bag, fs *source.FileSet) error {
	switch format {
	case "pretty":
		useColor := false
		if f, ok := w.(*os.File); ok {
			var err error
			useColor, err = resolveColor(cmd, f)
			if err != nil {
				return err
			}
		}
		diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     useColor,
			Context:   2,
			ShowNotes: true,
			ShowFixes: true,
		})
		return nil
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
			IncludeFixes:     true,
		})
	case "sarif":
		return diagfmt.Sarif(w, bag, fs, diagfmt.SarifRunMeta{
			ToolName:       "depyler",
			ToolVersion:    version.Number,
			InvocationArgs: os.Args,
		})
	default:
		return fmt.Errorf("unknown format: %s (expected pretty|json|sarif)", format)
	}
}
