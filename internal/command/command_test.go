// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
)

// mockRunner records lookups and returns configured responses.
type mockRunner struct {
	availableBins map[string]bool
}

func (m *mockRunner) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockRunner) Run(context.Context, string, []string, io.Reader, io.Writer) error {
	return nil
}

func TestRequire(t *testing.T) {
	tests := []struct {
		name    string
		bins    map[string]bool
		bin     string
		wantErr bool
	}{
		{"present", map[string]bool{"aws": true}, "aws", false},
		{"missing", map[string]bool{"pdftotext": true}, "aws", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Require(&mockRunner{availableBins: tt.bins}, tt.bin)
			if (err != nil) != tt.wantErr {
				t.Errorf("Require(%q) error = %v, wantErr %v", tt.bin, err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.bin) {
				t.Errorf("error %q should name %s", err, tt.bin)
			}
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	e := &ExitError{Name: "aws", Code: 1, Stderr: "fatal error: An error occurred (404)\n"}
	want := "aws exited with status 1: fatal error: An error occurred (404)"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}

	bare := &ExitError{Name: "pdftotext", Code: 3}
	if bare.Error() != "pdftotext exited with status 3" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func requireBin(t *testing.T, bin string) {
	t.Helper()
	if _, err := exec.LookPath(bin); err != nil {
		t.Skipf("%s not available", bin)
	}
}

func TestOSRunPipesStdinToStdout(t *testing.T) {
	requireBin(t, "cat")

	var out bytes.Buffer
	err := OS{}.Run(context.Background(), "cat", nil, strings.NewReader("payload"), &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "payload" {
		t.Errorf("stdout = %q, want %q", out.String(), "payload")
	}
}

func TestOSRunNonZeroExit(t *testing.T) {
	requireBin(t, "sh")

	err := OS{}.Run(context.Background(), "sh", []string{"-c", "echo boom >&2; exit 4"}, nil, &bytes.Buffer{})
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if ee.Code != 4 {
		t.Errorf("Code = %d, want 4", ee.Code)
	}
	if !strings.Contains(ee.Stderr, "boom") {
		t.Errorf("Stderr = %q, want it to contain boom", ee.Stderr)
	}
}

func TestOSRunMissingBinary(t *testing.T) {
	err := OS{}.Run(context.Background(), "definitely-not-a-real-binary-xyz", nil, nil, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		t.Error("missing binary should not be an ExitError")
	}
}
