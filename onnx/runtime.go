package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const EnvLibPath = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

var ErrLibNotFound = errors.New("onnxruntime shared library not found; set libonnx or " + EnvLibPath)

var envMu sync.Mutex

// LibPath resolves the shared library from the configured path, the
// environment, then well-known locations. It is not cached, so a library
// installed after a failed attempt is found on the next one.
func LibPath(libonnx, modelDir string) string {
	return resolveLibPath(libonnx, modelDir)
}

// Init points onnxruntime_go at the shared library and creates the
// environment. Calling it again after success is a no-op.
func Init(libonnx, modelDir string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	p := LibPath(libonnx, modelDir)
	if p == "" {
		slog.Error("ONNX Runtime library path could not be determined for this OS")
		return ErrLibNotFound
	}
	slog.Info("Using ONNX Runtime library", slog.String("path", p))
	ort.SetSharedLibraryPath(p)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

func Destroy() {
	envMu.Lock()
	defer envMu.Unlock()
	if !ort.IsInitialized() {
		return
	}
	if err := ort.DestroyEnvironment(); err != nil {
		slog.Error("Failed to destroy ONNX Runtime environment", slog.String("error", err.Error()))
	}
}

func resolveLibPath(configured, modelDir string) string {
	if configured != "" {
		return configured
	}
	if env := strings.TrimSpace(os.Getenv(EnvLibPath)); env != "" {
		return env
	}
	for _, dir := range searchDirs(modelDir) {
		for _, name := range libNames() {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

func libNames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"libonnxruntime.dylib", "onnxruntime.dylib"}
	case "windows":
		return []string{"onnxruntime.dll"}
	default:
		return []string{"libonnxruntime.so", "onnxruntime.so"}
	}
}

func searchDirs(modelDir string) []string {
	dirs := make([]string, 0, 6)
	if modelDir != "" {
		dirs = append(dirs, modelDir)
	}
	return append(dirs, "onnxlibs", ".", "/usr/local/lib", "/usr/lib", "/opt/homebrew/lib")
}
