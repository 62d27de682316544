package rlog

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewRequiresAtLeastOneSink(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected an error when neither Stdout nor File is set")
	}
}

func TestNewWithStdoutSucceeds(t *testing.T) {
	logger, err := New(Config{Stdout: true, Level: zapcore.InfoLevel})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer logger.Sync()
	logger.Info("test message")
}

func TestNewWithFileSinkSucceeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolver.log")
	logger, err := New(Config{File: path, Level: zapcore.DebugLevel, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer logger.Sync()
	logger.Debug("written to file")
}

func TestNopDiscardsEverything(t *testing.T) {
	logger := Nop()
	logger.Info("should not panic or write anywhere")
}
