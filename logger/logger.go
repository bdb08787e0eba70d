// Package logger provides the structured logging interface used across the
// client, with zerolog-backed implementations. The terminal belongs to the
// game, so the client logs to a file rather than stdout.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Field represents a key-value pair for structured log output.
type Field struct {
	Key   string
	Value any
}

// Logger is an interface for structured logging. Loggers may be derived with
// With for component-scoped fields.
type Logger interface {
	// Debug logs a message at debug level with optional structured fields.
	Debug(msg string, fields ...Field)

	// Info logs a message at info level with optional structured fields.
	Info(msg string, fields ...Field)

	// Warn logs a message at warn level with optional structured fields.
	Warn(msg string, fields ...Field)

	// Error logs a message at error level with optional structured fields.
	Error(msg string, fields ...Field)

	// With returns a new Logger that includes the given fields in all
	// subsequent log entries. The original Logger is unchanged.
	//
	// Parameters:
	//   - fields: Key-value pairs to attach to the derived logger
	//
	// Returns:
	//   - A new Logger with the specified fields
	With(fields ...Field) Logger

	// Rotate reopens the log file for the current date, for external
	// rotation triggers such as SIGHUP. It is a no-op for loggers without a
	// file.
	//
	// Returns:
	//   - An error if the new file cannot be opened
	Rotate() error

	// Close releases the log file, if the logger owns one. It is safe to call
	// multiple times.
	//
	// Returns:
	//   - An error if closing the file fails
	Close() error
}

// zerologLogger is the zerolog-based implementation of Logger.
type zerologLogger struct {
	logger         zerolog.Logger
	fileWriter     *DailyFileWriter
	ownsFileWriter bool
}

// NewZerologLogger builds a Logger that writes JSON entries to w, adding the
// service name and a timestamp to every entry and filtering by level.
//
// Parameters:
//   - w: Destination of the log entries
//   - serviceName: Added as the "service" field to every entry
//   - level: Minimum level to log (e.g. zerolog.DebugLevel)
//
// Returns:
//   - A Logger writing to w
func NewZerologLogger(w io.Writer, serviceName string, level zerolog.Level) Logger {
	return &zerologLogger{
		logger: zerolog.New(w).With().Str("service", serviceName).Timestamp().Logger().Level(level),
	}
}

// NewZerologFileLogger creates a Logger that writes to daily-rotated log files
// in logDir, named {serviceName}_{date}.log. Entries go to the files only;
// stdout belongs to the game.
//
// Parameters:
//   - serviceName: Name of the service, used in log entries and file names
//   - logDir: Directory for log files; created if it does not exist
//   - level: Minimum level to log
//
// Returns:
//   - The Logger, or an error if the directory or the first file cannot be
//     created
func NewZerologFileLogger(serviceName string, logDir string, level zerolog.Level) (Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fileWriter, err := NewDailyFileWriter(serviceName, logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create file writer: %w", err)
	}

	return &zerologLogger{
		logger:         zerolog.New(fileWriter).With().Str("service", serviceName).Timestamp().Logger().Level(level),
		fileWriter:     fileWriter,
		ownsFileWriter: true,
	}, nil
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}

// ParseLevel converts a level name ("debug", "info", ...) into a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}

	return level, nil
}

// Debug implements Logger.
func (z *zerologLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug().Fields(toMap(fields)).Msg(msg)
}

// Info implements Logger.
func (z *zerologLogger) Info(msg string, fields ...Field) {
	z.logger.Info().Fields(toMap(fields)).Msg(msg)
}

// Warn implements Logger.
func (z *zerologLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn().Fields(toMap(fields)).Msg(msg)
}

// Error implements Logger.
func (z *zerologLogger) Error(msg string, fields ...Field) {
	z.logger.Error().Fields(toMap(fields)).Msg(msg)
}

// With implements Logger. Derived loggers share the parent's file writer but
// never close it.
func (z *zerologLogger) With(fields ...Field) Logger {
	return &zerologLogger{
		logger:     z.logger.With().Fields(toMap(fields)).Logger(),
		fileWriter: z.fileWriter,
	}
}

// Rotate implements Logger.
func (z *zerologLogger) Rotate() error {
	if z.fileWriter == nil {
		return nil
	}

	return z.fileWriter.ForceRotate()
}

// Close implements Logger.
func (z *zerologLogger) Close() error {
	if z.fileWriter != nil && z.ownsFileWriter {
		return z.fileWriter.Close()
	}

	return nil
}

// toMap converts a slice of Field into a map for zerolog.
func toMap(fields []Field) map[string]any {
	if len(fields) == 0 {
		return nil
	}

	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}

	return m
}

// DailyFileWriter is an io.Writer that writes to a log file that rotates
// daily. File names are {service}_{date}.log. Rotation happens on the first
// write of a new day; a background goroutine also checks hourly, so a client
// idling overnight still starts a new file. Safe for concurrent use.
type DailyFileWriter struct {
	service  string
	dir      string
	mu       sync.RWMutex
	file     *os.File
	currDate string
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	closed   atomic.Bool

	// now is replaced in tests to cross midnight.
	now func() time.Time
}

// NewDailyFileWriter creates a DailyFileWriter that writes to the given
// directory with files named {service}_{date}.log. The directory must exist.
//
// Parameters:
//   - service: Service name used in log file names
//   - logDir: Directory path for log files
//
// Returns:
//   - The new DailyFileWriter, or an error if the initial file could not be opened
func NewDailyFileWriter(service string, logDir string) (*DailyFileWriter, error) {
	return newDailyFileWriter(service, logDir, time.Now)
}

func newDailyFileWriter(service string, logDir string, now func() time.Time) (*DailyFileWriter, error) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &DailyFileWriter{
		service: service,
		dir:     logDir,
		ctx:     ctx,
		cancel:  cancel,
		now:     now,
	}

	if err := w.rotate(); err != nil {
		cancel()
		return nil, fmt.Errorf("initial rotation failed: %w", err)
	}

	w.wg.Add(1)
	go w.autoRotate()
	return w, nil
}

// Close stops the background rotator and closes the current log file.
// Subsequent writes return an error. It is safe to call multiple times.
//
// Returns:
//   - An error if closing the file fails
func (w *DailyFileWriter) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	w.cancel()
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}

	return nil
}

func (w *DailyFileWriter) autoRotate() {
	defer w.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if w.closed.Load() {
				return
			}

			w.mu.Lock()
			if w.needsRotation() {
				_ = w.rotateInternal()
			}
			w.mu.Unlock()
		}
	}
}

func (w *DailyFileWriter) rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rotateInternal()
}

// rotateInternal reopens the file for the current date; caller must hold w.mu.
func (w *DailyFileWriter) rotateInternal() error {
	if w.closed.Load() {
		return fmt.Errorf("writer is closed")
	}

	date := w.now().Format("2006-01-02")

	filename := w.path(date)
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", filename, err)
	}

	if w.file != nil {
		_ = w.file.Close()
	}

	w.file = file
	w.currDate = date
	return nil
}

// Write implements io.Writer. It rotates to a new file when the date changes
// and writes p to the current log file.
func (w *DailyFileWriter) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, fmt.Errorf("writer is closed")
	}

	w.mu.RLock()
	needsRotation := w.needsRotation()
	w.mu.RUnlock()

	if needsRotation {
		w.mu.Lock()
		if w.needsRotation() {
			if err := w.rotateInternal(); err != nil {
				w.mu.Unlock()
				return 0, fmt.Errorf("rotation failed: %w", err)
			}
		}
		w.mu.Unlock()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.file == nil {
		return 0, fmt.Errorf("log file is not open")
	}

	return w.file.Write(p)
}

func (w *DailyFileWriter) needsRotation() bool {
	if w.file == nil {
		return true
	}

	return w.now().Format("2006-01-02") != w.currDate
}

// ForceRotate closes the current log file and reopens the one for the current
// date, e.g. after an external tool moved it away.
//
// Returns:
//   - An error if rotation fails
func (w *DailyFileWriter) ForceRotate() error {
	return w.rotate()
}

// CurrentLogFile returns the full path of the log file currently being
// written to, or "" if no file is open.
func (w *DailyFileWriter) CurrentLogFile() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.file == nil {
		return ""
	}

	return w.path(w.currDate)
}

func (w *DailyFileWriter) path(date string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s.log", w.service, date))
}
