// Package log hands out named, leveled loggers backed by op/go-logging.
// Verbosity and the output sink are process wide; packages only ever see
// the Logger interface.
package log

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

// Verbosity threshold accepted by SetLevel.
type Level int

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var backendLevels = [...]logging.Level{
	Debug:   logging.DEBUG,
	Info:    logging.INFO,
	Notice:  logging.NOTICE,
	Warning: logging.WARNING,
	Error:   logging.ERROR,
}

// Satisfied by *logging.Logger; keeps the backend out of package APIs.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

var (
	backend logging.LeveledBackend
	level   = Notice
)

// New returns the named logger for a package or subsystem.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// SetSink routes all logger output to sink. The active verbosity
// threshold is preserved.
func SetSink(sink io.Writer) {
	formatted := logging.NewBackendFormatter(
		logging.NewLogBackend(sink, "", 0),
		logging.MustStringFormatter(`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`),
	)
	backend = logging.AddModuleLevel(formatted)
	backend.SetLevel(backendLevels[level], "")
	logging.SetBackend(backend)
}

// SetLevel adjusts the process wide verbosity threshold.
func SetLevel(l Level) {
	level = l
	backend.SetLevel(backendLevels[level], "")
}

func init() {
	SetSink(os.Stdout)
}
