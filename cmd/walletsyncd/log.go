package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dashsync/walletsyncd/internal/config"
	"github.com/jrick/logrotate/rotator"
	log "github.com/sirupsen/logrus"
)

const (
	maxLogFileSizeKB = 10 * 1024
	maxLogFiles      = 3
)

var logRotator *rotator.Rotator

// initLogger sets the log level and sends every log line both to stderr
// and to the rotated log file.
func initLogger() error {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	logFile := config.GetString(config.LogFileKey)
	if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, maxLogFileSizeKB, false, maxLogFiles)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	logRotator = r

	log.SetOutput(io.MultiWriter(os.Stderr, logRotator))
	return nil
}

func closeLogger() {
	if logRotator == nil {
		return
	}
	log.SetOutput(os.Stderr)
	logRotator.Close()
	logRotator = nil
}
