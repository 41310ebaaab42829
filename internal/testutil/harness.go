// Package testutil holds the harness used by the end-to-end tests: a
// thread-safe log buffer, a project writer and a runner for the whole app.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/cosimgo/internal/app"
	"github.com/specialistvlad/cosimgo/internal/hcl_adapter"
	"github.com/specialistvlad/cosimgo/internal/registry"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteProject writes files (relative path -> content) into a fresh
// temporary directory and returns it.
func WriteProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}
	return dir
}

// HarnessResult holds the outcome of one run.
type HarnessResult struct {
	Dir       string
	LogOutput string
	Err       error
	App       *app.App
}

// ReadFile returns a file of the project directory, typically an output.
func (r *HarnessResult) ReadFile(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(r.Dir, name))
	require.NoError(t, err)
	return string(b)
}

// RunProject writes files to a temporary project and runs the whole app on
// it. Paths in cfg that are relative are taken relative to the project
// directory; ProjectPath defaults to the directory itself. With no modules
// given, the core built-in models are available.
func RunProject(ctx context.Context, t *testing.T, cfg app.Config, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := WriteProject(t, files)
	if cfg.ProjectPath == "" {
		cfg.ProjectPath = dir
	}
	for _, p := range []*string{&cfg.ProjectPath, &cfg.OutputPath, &cfg.ChartPath, &cfg.PlotPath} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	logBuffer := &SafeBuffer{}
	result := &HarnessResult{Dir: dir}
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		result.App = app.NewApp(logBuffer, &cfg, hcl_adapter.NewLoader(), modules...)
		result.Err = result.App.Run(ctx)
	}()

	result.LogOutput = logBuffer.String()
	if os.Getenv("COSIMGO_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
	}
	return result
}
