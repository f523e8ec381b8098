package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/genricoloni/mediashell/internal/config"
	"github.com/genricoloni/mediashell/internal/instance"
	"github.com/genricoloni/mediashell/internal/player"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := config.Default()
	cfg.AppID = "t"
	cfg.SocketDir = t.TempDir()
	cfg.HandoffTimeout = time.Second
	cfg.ReadTimeout = time.Second
	return cfg
}

// TestAppGraphValidity verifies that the dependency graph is resolvable.
func TestAppGraphValidity(t *testing.T) {
	cfg := testConfig(t)
	logger := zap.NewNop()

	err := fx.ValidateApp(appOptions(cfg, logger, instance.NewCoordinator(logger, cfg), ""))
	if err != nil {
		t.Errorf("Dependency graph is not valid: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level       string
		expectError bool
	}{
		{level: "debug"},
		{level: "info"},
		{level: "error"},
		{level: "loud", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := newLogger(tt.level)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to create logger: %v", err)
			}
			if logger == nil {
				t.Fatal("Logger should not be nil")
			}
		})
	}
}

// TestEndToEndStartup starts a primary, forwards a file to it and stops it
func TestEndToEndStartup(t *testing.T) {
	cfg := testConfig(t)
	logger := zap.NewNop()

	mediaDir := t.TempDir()
	first := filepath.Join(mediaDir, "first.mp3")
	second := filepath.Join(mediaDir, "second.mp3")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, make([]byte, 256), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	coordinator := instance.NewCoordinator(logger, cfg)
	var facade *player.Facade
	app := fx.New(
		appOptions(cfg, logger, coordinator, player.Seed(first)),
		fx.Populate(&facade),
	)

	if err := app.Start(t.Context()); err != nil {
		t.Fatalf("App failed to start: %v", err)
	}
	if !coordinator.Serving() {
		t.Fatal("primary should be serving")
	}

	client := instance.NewCoordinator(logger, cfg)
	if !client.TryHandoff(t.Context(), second) {
		t.Fatal("handoff to the running primary failed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		s, err := facade.Snapshot(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if s.Index == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("forwarded file never became current: %+v", s)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := app.Stop(t.Context()); err != nil {
		t.Fatalf("App failed to stop: %v", err)
	}
	if coordinator.Serving() {
		t.Error("coordinator should stop with the app")
	}
}

func TestRootCommand_Errors(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		expectedError string
	}{
		{name: "Too many files", args: []string{"a.mp3", "b.mp3"}, expectedError: "accepts at most 1 arg"},
		{name: "Missing config file", args: []string{"--config", filepath.Join(t.TempDir(), "none.toml")}, expectedError: "config file"},
		{name: "Invalid log level", args: []string{"--log-level", "loud", "--no-single-instance"}, expectedError: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCommand()
			cmd.SetArgs(tt.args)
			cmd.SetOut(&strings.Builder{})
			cmd.SetErr(&strings.Builder{})

			err := cmd.ExecuteContext(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectedError) {
				t.Errorf("expected error containing '%s', got '%s'", tt.expectedError, err.Error())
			}
		})
	}
}

// TestRootCommand_ForwardsToPrimary checks that a secondary launch hands off and returns
func TestRootCommand_ForwardsToPrimary(t *testing.T) {
	socketDir := t.TempDir()
	t.Setenv("MEDIASHELL_APP_ID", "t")
	t.Setenv("MEDIASHELL_SOCKET_DIR", socketDir)
	t.Chdir(t.TempDir())

	cfg := config.Default()
	cfg.AppID = "t"
	cfg.SocketDir = socketDir
	primary := instance.NewCoordinator(zap.NewNop(), cfg)
	if !primary.StartServing(context.Background()) {
		t.Fatal("StartServing returned false")
	}
	defer primary.Stop(context.Background())

	file := filepath.Join(t.TempDir(), "song.mp3")
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--log-level", "error", file})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("secondary launch failed: %v", err)
	}

	select {
	case got := <-primary.Received():
		if got != file {
			t.Errorf("expected %s, got %s", file, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("primary never received the file")
	}
}
