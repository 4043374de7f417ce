package onnx

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveLibPathPrefersConfigured(t *testing.T) {
	t.Setenv(EnvLibPath, "/from/env/libonnxruntime.so")
	if got := resolveLibPath("/from/config.so", ""); got != "/from/config.so" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveLibPathUsesEnv(t *testing.T) {
	t.Setenv(EnvLibPath, " /from/env/libonnxruntime.so ")
	if got := resolveLibPath("", ""); got != "/from/env/libonnxruntime.so" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveLibPathProbesModelDir(t *testing.T) {
	t.Setenv(EnvLibPath, "")
	dir := t.TempDir()
	want := filepath.Join(dir, libNames()[0])
	if err := os.WriteFile(want, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := resolveLibPath("", dir); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLibPathFindsLibraryInstalledAfterFailedAttempt(t *testing.T) {
	t.Setenv(EnvLibPath, "")
	dir := t.TempDir()
	want := filepath.Join(dir, libNames()[0])

	if got := LibPath("", dir); got == want {
		t.Fatalf("resolved %q before it existed", got)
	}
	if err := os.WriteFile(want, []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := LibPath("", dir); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
