// Package prof turns on the runtime profilers behind the CLI's profiling
// flags.
package prof

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Config names the profile output paths. An empty field leaves that
// profiler off.
type Config struct {
	CPUPath   string
	MemPath   string
	TracePath string
}

// Session holds the active profilers for one run.
type Session struct {
	cpu     *os.File
	trace   *os.File
	memPath string
	stopped bool
}

// Start enables the configured profilers. Anything already started is
// torn down again on error.
func Start(cfg Config) (*Session, error) {
	s := &Session{memPath: cfg.MemPath}

	if cfg.CPUPath != "" {
		f, err := os.Create(cfg.CPUPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to start cpu profile: %w", err)
		}
		s.cpu = f
	}

	if cfg.TracePath != "" {
		f, err := os.Create(cfg.TracePath)
		if err == nil {
			err = trace.Start(f)
		}
		if err != nil {
			if f != nil {
				_ = f.Close()
			}
			if s.cpu != nil {
				pprof.StopCPUProfile()
				_ = s.cpu.Close()
			}
			return nil, fmt.Errorf("failed to start runtime trace: %w", err)
		}
		s.trace = f
	}

	return s, nil
}

// Stop flushes and closes every active profiler. The heap profile is
// written here so it sees the run's final allocations. Safe to call more
// than once.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true

	if s.trace != nil {
		trace.Stop()
		_ = s.trace.Close()
		s.trace = nil
	}
	if s.cpu != nil {
		pprof.StopCPUProfile()
		_ = s.cpu.Close()
		s.cpu = nil
	}
	if s.memPath != "" {
		return writeHeap(s.memPath)
	}
	return nil
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile: %w", err)
	}
	defer f.Close()

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return nil
}
