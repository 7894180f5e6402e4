package logger

import (
	"context"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	// Init is idempotent.
	if err := Init(); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after repeated initialization")
	}
}

func TestLoggerFields(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	log := Get()
	log.Info(ctx, "assessment recorded",
		String("subject", "subject-1"),
		Int("skills", 7),
		Float64("score", 0.82),
		Any("extra", map[string]int{"evidence": 5}),
	)
	log.Debug(ctx, "debug message")
	log.Warn(ctx, "warn message")
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	named := Named("fusion")
	if named == nil {
		t.Fatal("named logger is nil")
	}
	named.Info(context.Background(), "named logger message")
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	for _, level := range []string{"debug", "info", "warn", "warning", "error", "", "  INFO "} {
		if err := SetLevelString(level); err != nil {
			t.Errorf("SetLevelString(%q) failed: %v", level, err)
		}
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
	// Restore the default for other tests.
	if err := SetLevelString("info"); err != nil {
		t.Fatalf("failed to restore level: %v", err)
	}
}
