package main

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/paiml/depyler/internal/driver"
	"github.com/paiml/depyler/internal/ui"
)

type transpileOutcome struct {
	results []driver.FileResult
	err     error
}

// runTranspileDirWithUI drives the batch behind a progress display. The
// driver closes the event channel when the batch finishes, which ends
// the program.
func runTranspileDirWithUI(ctx context.Context, title, dir string, opts driver.Options, batch driver.BatchOptions) ([]driver.FileResult, error) {
	files, err := driver.ListPyFiles(dir)
	if err != nil {
		return nil, err
	}

	events := make(chan driver.Progress, 256)
	outcomeCh := make(chan transpileOutcome, 1)

	go func() {
		b := batch
		b.Progress = events
		results, err := driver.TranspileDir(ctx, dir, opts, b)
		outcomeCh <- transpileOutcome{results: results, err: err}
	}()

	model := ui.NewProgressModel(title, displayFileList(files, dir), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}

// displayFileList shortens paths for the progress table.
func displayFileList(files []string, base string) []string {
	out := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(base, f)
		if err != nil {
			out[i] = f
			continue
		}
		out[i] = rel
	}
	return out
}
