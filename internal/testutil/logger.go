package testutil

import (
	"github.com/johnrirwin/devicedesk/internal/logging"
)

// NullLogger returns a logger that only writes errors
func NullLogger() *logging.Logger {
	return logging.New(logging.LevelError)
}
