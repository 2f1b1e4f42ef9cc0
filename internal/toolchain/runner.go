// Package toolchain runs the external programs of the stability pipeline
// (T-Coffee, Provean, FoldX, Modeller) and maps their failures onto the
// typed errors in pkg/domain.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Runner executes binaries, resolving bare names against a bin directory.
type Runner struct {
	binPath string
	env     []string
}

// Option configures a Runner.
type Option func(*Runner)

// WithEnv appends KEY=VALUE pairs to the environment of every command.
func WithEnv(kv ...string) Option {
	return func(r *Runner) { r.env = append(r.env, kv...) }
}

// NewRunner returns a Runner. An empty binPath resolves names through $PATH.
func NewRunner(binPath string, opts ...Option) *Runner {
	r := &Runner{binPath: binPath}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BinPath returns the configured bin directory.
func (r *Runner) BinPath() string { return r.binPath }

// Path resolves name to the executable that Run would start.
func (r *Runner) Path(name string) string {
	if r.binPath == "" || filepath.IsAbs(name) || filepath.Base(name) != name {
		return name
	}
	candidate := filepath.Join(r.binPath, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return name
}

// LookPath reports whether name resolves to an executable.
func (r *Runner) LookPath(name string) (string, error) {
	return exec.LookPath(r.Path(name))
}

// ExitError carries the combined output of a failed command.
type ExitError struct {
	Name   string
	Output []byte
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Run executes name with args in dir and returns stdout and stderr combined.
// A non-zero exit or a start failure is reported as *ExitError.
func (r *Runner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Path(name), args...)
	cmd.Dir = dir
	cmd.WaitDelay = time.Second
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return out.Bytes(), &ExitError{Name: name, Output: out.Bytes(), Err: err}
	}
	return out.Bytes(), nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
