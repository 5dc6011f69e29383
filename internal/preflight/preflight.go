package preflight

import (
	"context"

	"mediaq/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	if cfg.Queue.DestinationDir != "" {
		results = append(results, CheckDirectoryAccess("Destination directory", cfg.Queue.DestinationDir))
	}
	if cfg.Actions.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Library directory", cfg.Actions.LibraryDir))
	}

	for _, dep := range CheckSystemDeps(ctx, cfg) {
		detail := dep.Detail
		if dep.Available {
			detail = dep.Path
			if dep.Version != "" {
				detail += " (" + dep.Version + ")"
			}
		}
		results = append(results, Result{Name: dep.Name, Passed: dep.Available || dep.Optional, Detail: detail})
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
