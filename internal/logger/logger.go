package logger

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry so call sites can chain fields directly.
type Logger struct {
	*logrus.Entry
}

// New builds a logger from the environment: PCA_ENVIRONMENT selects the
// formatter (local = colored text, anything else = JSON) and PCA_LOG_LEVEL
// selects the level.
func New() *Logger {
	base := logrus.New()

	env := os.Getenv("PCA_ENVIRONMENT")
	if env == "" || env == "local" {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
			ForceColors:     true,
		})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	base.SetOutput(os.Stdout)

	switch os.Getenv("PCA_LOG_LEVEL") {
	case "debug":
		base.SetLevel(logrus.DebugLevel)
	case "warn":
		base.SetLevel(logrus.WarnLevel)
	case "error":
		base.SetLevel(logrus.ErrorLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Entry: logrus.NewEntry(base)}
}

// WithRun attaches a run correlation ID, generating one when empty.
func (l *Logger) WithRun(runID string) *logrus.Entry {
	if runID == "" {
		runID = uuid.New().String()
	}
	return l.WithField("run_id", runID)
}

// WithComponent tags entries with the owning component name.
func (l *Logger) WithComponent(name string) *logrus.Entry {
	return l.WithField("component", name)
}
