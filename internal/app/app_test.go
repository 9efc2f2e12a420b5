package app_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sophialabs/declarecheck/internal/app"
)

func TestRun_StartsAndShutdownsGracefully(t *testing.T) {
	dir := t.TempDir()
	writeTestModel(t, dir)

	port := freePort(t)
	cfg := app.DefaultConfig()
	cfg.ModelDir = dir
	cfg.Port = port

	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
	}()

	// Wait for server to be ready.
	addr := fmt.Sprintf("http://localhost:%d/api/v1/health", port)
	waitForServer(t, addr, 3*time.Second)

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRun_FailsOnInvalidModel(t *testing.T) {
	dir := t.TempDir()
	// Existence requires a cardinality.
	yaml := `- id: ship
  template: Existence
  activities: [Ship]
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write model file: %v", err)
	}

	cfg := app.DefaultConfig()
	cfg.ModelDir = dir

	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.Run(ctx); err == nil {
		t.Error("expected error for invalid model")
	}
}

func TestRun_ServesChecks(t *testing.T) {
	dir := t.TempDir()
	writeTestModel(t, dir)

	port := freePort(t)
	cfg := app.DefaultConfig()
	cfg.ModelDir = dir
	cfg.Port = port

	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
	}()

	base := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, base+"/api/v1/health", 3*time.Second)

	resp, err := http.Get(base + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/__admin/constraints")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server not ready at %s after %v", url, timeout)
}
