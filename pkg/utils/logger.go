package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logrus instance. Both binaries (server and
// seeder) share it so log output stays uniform.
var Logger *logrus.Logger

// InitLogger configures the shared logger from the environment. LOG_LEVEL
// accepts any logrus level name; LOG_FORMAT=text switches to the
// human-readable formatter for local development, JSON is the default.
func InitLogger() {
	Logger = logrus.New()
	Logger.SetOutput(os.Stdout)

	if os.Getenv("LOG_FORMAT") == "text" {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)
}

// GetLogger returns the shared logger, initializing it on first use.
func GetLogger() *logrus.Logger {
	if Logger == nil {
		InitLogger()
	}
	return Logger
}
