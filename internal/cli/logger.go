package cli

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/runbookhq/opsagent/internal/logging"
)

// Log file rotation settings.
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 30
)

// logFileWriter holds the log file writer for cleanup purposes.
var logFileWriter io.WriteCloser //nolint:gochecknoglobals // Needed for cleanup

// InitLogger creates and configures a zerolog.Logger based on verbosity
// flags.
//
// Log levels are set as follows:
//   - verbose=true: Debug level (most detailed)
//   - quiet=true: Warn level (errors and warnings only)
//   - default: Info level (normal operation)
//
// Output format is determined by the terminal: a TTY without NO_COLOR
// gets the console writer, everything else gets JSON on stderr.
//
// When logFile is non-empty, output is duplicated to a size-rotated
// file. Generated commands can carry credentials, so every sink is
// filtered through the redaction hook. If the log file cannot be
// created the logger continues with console-only output.
func InitLogger(verbose, quiet bool, logFile string) zerolog.Logger {
	writer := selectOutput()

	if logFile != "" {
		if fw, err := createLogFileWriter(logFile); err == nil {
			logFileWriter = fw
			writer = zerolog.MultiLevelWriter(writer, fw)
		}
	}

	logger := newLogger(writer, selectLevel(verbose, quiet))
	setGlobalLogger(logger)
	return logger
}

// InitLoggerWithWriter creates a zerolog.Logger with a custom writer.
// This is primarily intended for testing purposes.
func InitLoggerWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	logger := newLogger(w, selectLevel(verbose, quiet))
	setGlobalLogger(logger)
	return logger
}

// newLogger builds the logger over a redacting writer. Zerolog hooks
// cannot rewrite messages, so redaction happens in the writer and the
// hook only flags entries that contained sensitive data.
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(logging.NewRedactingWriter(w)).
		Level(level).
		Hook(logging.NewRedactHook()).
		With().Timestamp().Logger()
}

// setGlobalLogger configures the global zerolog logger to match the CLI
// logger so code using github.com/rs/zerolog/log gets the same output.
func setGlobalLogger(cliLogger zerolog.Logger) {
	log.Logger = cliLogger
}

// CloseLogFile closes the log file writer if it was opened.
// This should be called during application shutdown.
func CloseLogFile() {
	if logFileWriter != nil {
		_ = logFileWriter.Close()
		logFileWriter = nil
	}
}

// selectLevel determines the appropriate log level based on flags.
func selectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// selectOutput determines the appropriate output writer based on
// terminal capabilities and environment settings.
func selectOutput() io.Writer {
	if term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}
	}
	return os.Stderr
}

// createLogFileWriter creates a rotating file writer wrapped with
// redaction so sensitive data is never written to disk.
func createLogFileWriter(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		Compress:   true,
	}

	return &redactingWriteCloser{
		filter: logging.NewRedactingWriter(lj),
		closer: lj,
	}, nil
}

// redactingWriteCloser pairs a RedactingWriter with the underlying
// file's closer.
type redactingWriteCloser struct {
	filter *logging.RedactingWriter
	closer io.Closer
}

func (rwc *redactingWriteCloser) Write(p []byte) (n int, err error) {
	return rwc.filter.Write(p)
}

func (rwc *redactingWriteCloser) Close() error {
	return rwc.closer.Close()
}
