// Package deps locates the external tools mediaq shells out to and reports
// their versions.
package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// Requirement names an external binary and how it is used.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArg is passed to the binary to print its version. Empty skips
	// the version probe.
	VersionArg string
}

// Status is the outcome of checking one Requirement.
type Status struct {
	Requirement
	Path      string
	Version   string
	Available bool
	Detail    string
}

// Check resolves each requirement on PATH and, when VersionArg is set, runs
// it to capture the first line of its version banner. A binary that resolves
// but fails the version probe is still reported available.
func Check(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		status := Status{Requirement: req}

		switch path, err := exec.LookPath(req.Command); {
		case req.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		default:
			status.Path = path
			status.Available = true
			if req.VersionArg != "" {
				status.Version = probeVersion(ctx, path, req.VersionArg)
			}
		}
		results = append(results, status)
	}
	return results
}

func probeVersion(ctx context.Context, path, arg string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, arg).Output()
	if err != nil {
		return ""
	}
	return versionFromBanner(out)
}

// versionFromBanner extracts "6.1.1" from banners such as
// "ffmpeg version 6.1.1-3ubuntu5 Copyright ...". It falls back to the whole
// first line when no "version" token is present.
func versionFromBanner(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return ""
	}
	line := strings.TrimSpace(scanner.Text())
	fields := strings.Fields(line)
	for i, field := range fields {
		if field == "version" && i+1 < len(fields) {
			v := fields[i+1]
			if cut := strings.IndexAny(v, "-+~"); cut > 0 {
				v = v[:cut]
			}
			return v
		}
	}
	return line
}
