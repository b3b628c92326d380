package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paiml/depyler/internal/borrows"
	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/driver"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/pyast"
	"github.com/paiml/depyler/internal/source"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <ast|hir|typed-hir> <file.py>",
	Short: "Dump an intermediate representation of a Python file",
	Long: `Inspect shows what the pipeline built from one source file: the raw
Python AST, the lowered HIR, or the HIR together with solved parameter
signatures. The dump goes to stdout and diagnostics to stderr, so the
output stays pipeable.`,
	Args: cobra.ExactArgs(2),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("json", false, "emit JSON instead of the text dump")
	registerTranspileFlags(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	repr := args[0]
	inputPath := args[1]

	switch repr {
	case "ast", "hir", "typed-hir":
	default:
		return fmt.Errorf("unknown representation: %s (expected ast|hir|typed-hir)", repr)
	}

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}

	opts, _, err := buildOptions(cmd, filepath.Dir(inputPath))
	if err != nil {
		return err
	}

	if repr == "ast" {
		return inspectAST(cmd, inputPath, opts, asJSON)
	}

	res, err := driver.TranspileFile(cmd.Context(), inputPath, opts)
	if err != nil {
		return fmt.Errorf("inspect failed: %w", err)
	}
	if res.Bag.Len() > 0 {
		if err := renderDiagnostics(cmd, os.Stderr, "pretty", res.Bag, res.FileSet); err != nil {
			return err
		}
	}

	if repr == "hir" {
		if asJSON {
			return writeJSON(os.Stdout, res.HIR)
		}
		hir.Dump(os.Stdout, res.HIR)
		return nil
	}

	sigs := res.Signatures.All()
	if asJSON {
		return writeJSON(os.Stdout, typedDump{Module: res.HIR, Signatures: sigs})
	}
	hir.Dump(os.Stdout, res.HIR)
	printSignatures(os.Stdout, sigs)
	return nil
}

func inspectAST(cmd *cobra.Command, path string, opts driver.Options, asJSON bool) error {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	max := opts.MaxDiagnostics
	if max <= 0 {
		max = driver.DefaultMaxDiagnostics
	}
	bag := diag.NewBag(max)
	mod, err := pyast.Parse(cmd.Context(), fs.Get(id), &diag.BagReporter{Bag: bag})
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}
	if bag.Len() > 0 {
		if err := renderDiagnostics(cmd, os.Stderr, "pretty", bag, fs); err != nil {
			return err
		}
	}

	if asJSON {
		// AST children are interface values that do not survive
		// encoding/json, so the dump text travels inside an envelope.
		return writeJSON(os.Stdout, astDump{File: path, Dump: pyast.DumpString(mod)})
	}
	pyast.Dump(os.Stdout, mod)
	return nil
}

type astDump struct {
	File string `json:"file"`
	Dump string `json:"dump"`
}

type typedDump struct {
	Module     *hir.Module                  `json:"module"`
	Signatures []*borrows.FunctionSignature `json:"signatures"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSignatures(w io.Writer, sigs []*borrows.FunctionSignature) {
	if len(sigs) == 0 {
		return
	}
	fmt.Fprintf(w, "\nsignatures\n")
	for _, sig := range sigs {
		parts := make([]string, len(sig.Params))
		for i, p := range sig.Params {
			parts[i] = fmt.Sprintf("%s: %s", p.Name, p.Kind)
			if p.Mutated {
				parts[i] += " (mut)"
			}
		}
		suffix := ""
		if sig.Fallible {
			suffix = " fallible"
		}
		fmt.Fprintf(w, "  %s(%s)%s\n", sig.Name, strings.Join(parts, ", "), suffix)
		for _, p := range sig.Params {
			for _, r := range p.Reasons {
				fmt.Fprintf(w, "    %s: %s\n", p.Name, r.Detail)
			}
		}
	}
}
