package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"h2olog/internal/config"
	"h2olog/internal/core"
	"h2olog/internal/insight"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Port:            "8081",
		BindAddr:        "127.0.0.1",
		DataBackend:     backend,
		DataDir:         dir,
		SQLiteDBPath:    dir + "/h2olog.db",
		Timezone:        "UTC",
		TrendDays:       7,
		LowIntakeML:     1500,
		InsightProvider: "gemini",
		InsightTimeout:  time.Second,
		DigestSchedule:  "5 0 * * *",
		LogLevel:        "info",
	}
}

func TestNewApp_PersistsAcrossRestarts(t *testing.T) {
	for _, backend := range []string{"disk", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, backend)

			app, err := NewApp(ctx, cfg, nil)
			if err != nil {
				t.Fatalf("NewApp: %v", err)
			}
			if app.Broker != nil || app.Publisher != nil {
				t.Fatal("broker should be disabled without AMQP_URL")
			}
			if _, err := app.Entries.Add(ctx, core.Draft{Type: core.Intake, Amount: 300}); err != nil {
				t.Fatalf("Add: %v", err)
			}
			if _, err := app.Settings.AddPreset(ctx, core.Output, 150); err != nil {
				t.Fatalf("AddPreset: %v", err)
			}
			if err := app.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			reopened, err := NewApp(ctx, cfg, nil)
			if err != nil {
				t.Fatalf("NewApp reopen: %v", err)
			}
			defer reopened.Close()
			if n := reopened.Entries.Len(); n != 1 {
				t.Fatalf("entries after reopen = %d, want 1", n)
			}
			presets := reopened.Settings.Presets(ctx, core.Output)
			found := false
			for _, p := range presets {
				found = found || p == 150
			}
			if !found {
				t.Fatalf("preset 150 missing after reopen: %v", presets)
			}
		})
	}
}

func TestNewApp_InsightNotConfigured(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t, "memory"), nil)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer app.Close()

	if app.Requester.Configured() {
		t.Fatal("requester should not be configured without a key")
	}
	res := app.Insights.Run(context.Background())
	if res.Status != insight.StatusNotConfigured || res.Text != insight.TextNotConfigured {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestNewApp_BadTimezone(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Timezone = "Nowhere/Special"
	if _, err := NewApp(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected timezone error")
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("unexpected log output %q", out)
	}
}
