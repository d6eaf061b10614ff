package executor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExecuteRunsInDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	exec := NewLocalExecutor("/bin/sh")

	result, err := exec.Execute(context.Background(), dir, "ls")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !result.Success() {
		t.Fatalf("expected success, got %+v", result)
	}
	if !strings.Contains(result.Stdout, "marker.txt") {
		t.Fatalf("expected marker.txt in output, got %q", result.Stdout)
	}
}

func TestExecuteReportsExitCode(t *testing.T) {
	exec := NewLocalExecutor("/bin/sh")
	result, err := exec.Execute(context.Background(), "", "echo oops >&2; exit 3")
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if result.ExitCode != 3 || result.Success() {
		t.Fatalf("expected exit 3, got %+v", result)
	}
	if strings.TrimSpace(result.Stderr) != "oops" {
		t.Fatalf("stderr = %q", result.Stderr)
	}
}

func TestExecuteStreamsOutput(t *testing.T) {
	exec := NewLocalExecutor("/bin/sh")
	var live bytes.Buffer
	exec.Stdout = &live

	result, err := exec.Execute(context.Background(), "", "echo hello")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if live.String() != "hello\n" || result.Stdout != "hello\n" {
		t.Fatalf("live=%q captured=%q", live.String(), result.Stdout)
	}
}

func TestExecuteHonoursContext(t *testing.T) {
	exec := NewLocalExecutor("/bin/sh")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := exec.Execute(ctx, "", "sleep 5")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if result.Success() {
		t.Fatalf("cancelled command must not succeed: %+v", result)
	}
}
