package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitLogger(t *testing.T) {
	for _, debug := range []bool{false, true} {
		logger, closer, err := initLogger(debug, "")
		if err != nil {
			t.Fatalf("initLogger(%v) failed: %v", debug, err)
		}
		if closer != nil {
			t.Fatal("expected no closer without a log file")
		}
		logger.Info().Msg("This should be discarded")
	}
}

func TestInitLoggerWithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	logger, closer, err := initLogger(true, logFile)
	if err != nil {
		t.Fatalf("initLogger failed: %v", err)
	}
	defer closer.Close()

	logger.Info().Msg("Test message")

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if len(content) == 0 {
		t.Error("Log file is empty")
	}
}

func TestInitLoggerBadPath(t *testing.T) {
	if _, _, err := initLogger(false, filepath.Join(t.TempDir(), "missing", "test.log")); err == nil {
		t.Fatal("expected an error for an unwritable log path")
	}
}

func TestFlagsDefined(t *testing.T) {
	if debugMode == nil || logFile == nil || configPath == nil || listTools == nil || printPrompt == nil || assumeYes == nil || version == nil {
		t.Fatal("expected every flag to be defined")
	}
	if *configPath != "config.json" {
		t.Fatalf("unexpected default config path %q", *configPath)
	}
}

func TestVersionVariable(t *testing.T) {
	if Version == "" {
		t.Error("Version variable should not be empty")
	}
}
