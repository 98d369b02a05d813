package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		development bool
		level       string
		wantEnabled zapcore.Level
		wantErr     bool
	}{
		{name: "development defaults to debug", development: true, wantEnabled: zapcore.DebugLevel},
		{name: "production defaults to info", wantEnabled: zapcore.InfoLevel},
		{name: "explicit level", level: "warn", wantEnabled: zapcore.WarnLevel},
		{name: "invalid level", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLogger(tt.development, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !l.Core().Enabled(tt.wantEnabled) {
				t.Errorf("NewLogger() level %v not enabled", tt.wantEnabled)
			}
			if tt.wantEnabled > zapcore.DebugLevel && l.Core().Enabled(tt.wantEnabled-1) {
				t.Errorf("NewLogger() level below %v enabled", tt.wantEnabled)
			}
		})
	}
}

func TestLogger_ChildLoggersKeepFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{Logger: zap.New(core)}

	l.Named("portfolio").WithFields(zap.String("pass", "1")).WithError(errors.New("boom")).Warn("Pass failed")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "portfolio" {
		t.Errorf("LoggerName = %q, want %q", e.LoggerName, "portfolio")
	}
	ctx := e.ContextMap()
	if ctx["pass"] != "1" || ctx["error"] != "boom" {
		t.Errorf("context = %v, want pass=1 and error=boom", ctx)
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("Info message")
	l.WithError(errors.New("x")).Error("Error message")
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}
