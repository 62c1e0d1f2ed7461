// Package runner executes the external tools the analysis pipeline delegates
// to (ffmpeg, ffprobe, chord recognizers) and reports their failures as
// ProcessError values.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Result holds command execution output
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes one external tool with context support
type Runner struct {
	Tool string   // executable name or path
	Dir  string   // working directory, empty for the current one
	Env  []string // extra environment entries appended to os.Environ()
}

func New(tool string) *Runner {
	return &Runner{Tool: tool}
}

// Available reports whether the tool can be found on PATH.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.Tool)
	return err == nil
}

// Run executes the tool with args. stage names the pipeline step for error
// reporting. On failure the returned error is a *ProcessError and the partial
// Result is still returned.
func (r *Runner) Run(ctx context.Context, stage string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, r.Tool, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return result, nil
	}

	result.ExitCode = -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return result, NewProcessError(r.Tool, stage, result.ExitCode, result.Stderr, err)
}

// ProcessError represents a failure in an external process
type ProcessError struct {
	Tool     string // "ffmpeg", "ffprobe", "yt-dlp", recognizer command
	Stage    string // "convert", "probe", "download", "recognize"
	ExitCode int    // -1 when the process never ran or was killed
	Stderr   string
	Cause    error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed at %s (exit %d): %s", e.Tool, e.Stage, e.ExitCode, trimStderr(e.Stderr))
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s failed at %s (exit %d): %v", e.Tool, e.Stage, e.ExitCode, e.Cause)
	}
	return fmt.Sprintf("%s failed at %s (exit %d)", e.Tool, e.Stage, e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// NotInstalled reports whether the tool could not be started at all.
func (e *ProcessError) NotInstalled() bool {
	return errors.Is(e.Cause, exec.ErrNotFound)
}

func NewProcessError(tool, stage string, exitCode int, stderr string, cause error) *ProcessError {
	return &ProcessError{
		Tool:     tool,
		Stage:    stage,
		ExitCode: exitCode,
		Stderr:   stderr,
		Cause:    cause,
	}
}

const maxStderr = 512

func trimStderr(s string) string {
	s = string(bytes.TrimSpace([]byte(s)))
	if len(s) > maxStderr {
		return "..." + s[len(s)-maxStderr:]
	}
	return s
}
