// Package logging wires zerolog the same way danmuck-edgectl's
// internal/observability/logger.go does: a console writer, an
// RFC3339 timestamp, and a component-scoped field, set as the package
// default so library code that logs through rs/zerolog/log picks it up
// too.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger and returns a Logger scoped
// with component, for injection into a connection.Engine or
// tdma.Coordinator.
func Init(component string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("component", component).Logger()
	log.Logger = logger
	return logger
}
