// internal/logger/logger.go
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	level   = logrus.InfoLevel
	out     io.Writer = os.Stdout
	created []*logrus.Logger
)

// NewLogger returns a logrus logger writing text lines with full timestamps.
// Every logger created here follows later SetDebug / SetOutput calls.
func NewLogger() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()

	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetLevel(level)
	created = append(created, log)
	return log
}

// SetDebug switches all package loggers between Debug and Info level.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()

	level = logrus.InfoLevel
	if enabled {
		level = logrus.DebugLevel
	}
	for _, l := range created {
		l.SetLevel(level)
	}
}

// SetOutput redirects all package loggers, mostly useful to silence tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	out = w
	for _, l := range created {
		l.SetOutput(w)
	}
}
