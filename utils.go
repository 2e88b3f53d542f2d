package gridsearch

import (
	"io"

	"github.com/sirupsen/logrus"
)

//////
// Helper functions.
//////

// discardLogger returns a logger that drops everything. It is used when the
// caller configures no logger, so the library stays silent by default.
func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)

	return l
}
