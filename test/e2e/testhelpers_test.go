//go:build e2e

package e2e_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
	"github.com/sophialabs/declarecheck/internal/infrastructure/wiring"
	"github.com/sophialabs/declarecheck/internal/testutil"
)

func projectRoot() string {
	_, file, _, _ := runtime.Caller(0)
	// file = <root>/test/e2e/testhelpers_test.go, go up 2 levels
	return filepath.Join(filepath.Dir(file), "..", "..")
}

func testdataPath(parts ...string) string {
	return filepath.Join(append([]string{projectRoot(), "testdata"}, parts...)...)
}

func setupContainer(t *testing.T) (*wiring.Container, *services.Model) {
	t.Helper()

	c, err := wiring.New(wiring.Params{
		ModelDir:       testdataPath("model"),
		HistorySize:    100,
		RateLimiterTTL: 10 * time.Minute,
		Workers:        4,
		CacheSize:      64,
		TracesPath:     "$.traces",
		DefaultEngine:  "jinja2",
		Logger:         &testutil.NoopLogger{},
	})
	if err != nil {
		t.Fatalf("failed to wire container: %v", err)
	}
	t.Cleanup(c.Close)

	m, err := c.LoadModelUseCase().Execute(context.Background())
	if err != nil {
		t.Fatalf("failed to load model: %v", err)
	}
	return c, m
}
