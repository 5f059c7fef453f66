package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. level is any logrus level name, format
// is TEXT or JSON. Unknown values fall back to INFO and TEXT.
func NewLogger(level, format string, disableTimestamp bool) *logrus.Logger {
	return newLogger(os.Stdout, level, format, disableTimestamp)
}

func newLogger(out io.Writer, level, format string, disableTimestamp bool) *logrus.Logger {
	log := logrus.New()
	log.Out = out

	switch strings.ToUpper(format) {
	case "JSON":
		log.Formatter = &logrus.JSONFormatter{DisableTimestamp: disableTimestamp}
	default:
		log.Formatter = &logrus.TextFormatter{
			DisableColors:    false,
			DisableTimestamp: disableTimestamp,
			FullTimestamp:    true,
		}
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		log.WithField("level", level).Warnln("Unknown log level, using INFO 🔔")
	}
	log.Level = lvl
	return log
}
