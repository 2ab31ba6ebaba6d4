// Package log provides a simple way of logging with different levels.
// Time/Date are not logged because systemd adds them for us.
//
// Uses these prefixes: https://www.freedesktop.org/software/systemd/man/sd-daemon.html
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

var logLevel string

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
	CritWriter  io.Writer = os.Stderr
)

var (
	DebugPrefix string = "<7>[DEBUG]    "
	InfoPrefix  string = "<6>[INFO]     "
	WarnPrefix  string = "<4>[WARNING]  "
	ErrPrefix   string = "<3>[ERROR]    "
	CritPrefix  string = "<2>[CRITICAL] "
)

var (
	DebugLog *log.Logger = log.New(DebugWriter, DebugPrefix, 0)
	InfoLog  *log.Logger = log.New(InfoWriter, InfoPrefix, 0)
	WarnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	ErrLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.Llongfile)
	CritLog  *log.Logger = log.New(CritWriter, CritPrefix, log.Llongfile)
)

// SetLogLevel silences writers below lvl. Valid values, low to high:
// debug, info, warn, err, crit.
func SetLogLevel(lvl string) {
	switch lvl {
	case "crit":
		ErrWriter = io.Discard
		fallthrough
	case "err", "fatal":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
		// nothing to do
	default:
		fmt.Fprintf(os.Stderr, "pkg/log: invalid loglevel %#v, defaulting to 'info'\n", lvl)
		SetLogLevel("info")
		return
	}
	rebuild()
}

// SetOutputFile redirects every writer not silenced by SetLogLevel to
// append to path, in addition to stderr, and returns the opened handle so
// the caller can close it on shutdown. Used when log_file_path is set in
// the service config.
func SetOutputFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	redirect := func(w io.Writer) io.Writer {
		if w == io.Discard {
			return w
		}
		return io.MultiWriter(os.Stderr, f)
	}
	DebugWriter = redirect(DebugWriter)
	InfoWriter = redirect(InfoWriter)
	WarnWriter = redirect(WarnWriter)
	ErrWriter = redirect(ErrWriter)
	CritWriter = redirect(CritWriter)
	rebuild()
	return f, nil
}

func rebuild() {
	DebugLog = log.New(DebugWriter, DebugPrefix, 0)
	InfoLog = log.New(InfoWriter, InfoPrefix, 0)
	WarnLog = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	ErrLog = log.New(ErrWriter, ErrPrefix, log.Llongfile)
	CritLog = log.New(CritWriter, CritPrefix, log.Llongfile)
}

func printStr(v ...interface{}) string {
	return fmt.Sprint(v...)
}

func Debug(v ...interface{}) { DebugLog.Output(2, printStr(v...)) }
func Info(v ...interface{})  { InfoLog.Output(2, printStr(v...)) }
func Warn(v ...interface{})  { WarnLog.Output(2, printStr(v...)) }
func Error(v ...interface{}) { ErrLog.Output(2, printStr(v...)) }
func Crit(v ...interface{})  { CritLog.Output(2, printStr(v...)) }

func Debugf(format string, v ...interface{}) { DebugLog.Output(2, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { InfoLog.Output(2, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { WarnLog.Output(2, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { ErrLog.Output(2, fmt.Sprintf(format, v...)) }
func Critf(format string, v ...interface{})  { CritLog.Output(2, fmt.Sprintf(format, v...)) }

// Fatal logs at crit level and exits the process. Only ever used at
// startup (flag, config, state-file and spool-file errors); the two
// long-running tasks never
// call this — every runtime fault is retried, per spec.
func Fatal(v ...interface{}) {
	CritLog.Output(2, printStr(v...))
	os.Exit(1)
}

func Fatalf(format string, v ...interface{}) {
	CritLog.Output(2, fmt.Sprintf(format, v...))
	os.Exit(1)
}
