// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package command runs external tools (the AWS CLI, pdftotext) behind an
// interface so callers can substitute a fake in tests.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Runner locates and executes external programs.
type Runner interface {
	// LookPath reports where file is on PATH.
	LookPath(file string) (string, error)

	// Run executes name with args, piping stdin and stdout. A non-zero exit
	// is returned as *ExitError.
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

// ExitError reports a command that started but exited unsuccessfully.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// OS is the production Runner backed by os/exec.
type OS struct{}

func (OS) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (OS) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Name: name, Code: ee.ExitCode(), Stderr: stderr.String()}
	}
	return fmt.Errorf("running %s: %w", name, err)
}

// Default is the Runner used when none is injected.
var Default Runner = OS{}

// Require returns an error naming bin when it cannot be found through r.
func Require(r Runner, bin string) error {
	if _, err := r.LookPath(bin); err != nil {
		return fmt.Errorf("%s not found on PATH: %w", bin, err)
	}
	return nil
}
