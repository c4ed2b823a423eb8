// Package logging manages session log files: each run gets a timestamped
// directory under the log root, and old sessions are pruned.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Manager handles the creation and rotation of session log directories.
type Manager struct {
	logDir            string
	level             string
	maxLogsToKeep     int
	currentSessionDir string
}

// NewManager creates a manager rooted at logDir.
func NewManager(logDir, level string, maxLogsToKeep int) *Manager {
	return &Manager{
		logDir:        logDir,
		level:         level,
		maxLogsToKeep: maxLogsToKeep,
	}
}

// Logger initializes the main application logger, writing to main.log in a
// fresh session directory and mirroring warnings and above to stderr.
func (m *Manager) Logger() (*zap.Logger, error) {
	if err := m.setupLogDirectories(); err != nil {
		return nil, err
	}

	return m.initLogger(filepath.Join(m.currentSessionDir, "main.log"))
}

// SessionDir returns the current session directory, creating one if needed.
func (m *Manager) SessionDir() string {
	if m.currentSessionDir != "" {
		return m.currentSessionDir
	}

	sessionDir := filepath.Join(m.logDir, time.Now().Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(sessionDir, os.ModePerm); err != nil {
		return m.logDir
	}

	m.currentSessionDir = sessionDir

	return sessionDir
}

// setupLogDirectories ensures the base directory exists, rotates old
// sessions, and creates a new session directory.
func (m *Manager) setupLogDirectories() error {
	if err := os.MkdirAll(m.logDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	if err := m.rotateLogSessions(); err != nil {
		return fmt.Errorf("failed to rotate log sessions: %w", err)
	}

	m.currentSessionDir = filepath.Join(m.logDir, time.Now().Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(m.currentSessionDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	return nil
}

// initLogger creates a zap logger writing to path, with warnings and above
// duplicated on stderr.
func (m *Manager) initLogger(path string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(m.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(file),
			zapLevel,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stderr),
			zapcore.WarnLevel,
		),
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// rotateLogSessions keeps only the most recent sessions.
func (m *Manager) rotateLogSessions() error {
	sessions, err := filepath.Glob(filepath.Join(m.logDir, "*"))
	if err != nil {
		return err
	}

	if m.maxLogsToKeep <= 0 || len(sessions) < m.maxLogsToKeep {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(sessions)

	for _, session := range sessions[:len(sessions)-m.maxLogsToKeep+1] {
		if err := os.RemoveAll(session); err != nil {
			return fmt.Errorf("failed to remove old session %s: %w", session, err)
		}
	}

	return nil
}
