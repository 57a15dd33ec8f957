// Package logger holds the process-wide zap sugared logger and the
// request-logging middleware for the HTTP surface.
package logger

import (
	"errors"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// Log is the global zap SugaredLogger the whole service writes through.
// It must be initialized via Init() before the first request is served.
var Log *zap.SugaredLogger

// Init parses the configured level and installs the global logger.
func Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	Log = zl.Sugar()

	return nil
}

// Sync flushes buffered entries on shutdown. Syncing a terminal returns
// os.ErrInvalid on some platforms; that is not a failure.
func Sync() error {
	if err := Log.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}

	return nil
}

// requestOutcome accumulates what the handler chain actually answered.
type requestOutcome struct {
	status int
	bytes  int
}

type outcomeRecordingWriter struct {
	http.ResponseWriter
	outcome *requestOutcome
}

func (w *outcomeRecordingWriter) Write(b []byte) (int, error) {
	size, err := w.ResponseWriter.Write(b)
	w.outcome.bytes += size

	return size, err
}

func (w *outcomeRecordingWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.outcome.status = statusCode
}

// WithLoggingHTTPMiddleware logs one line per served request: method,
// URI, caller address, status, response size and duration. The
// Authorization header and request bodies are never logged, so tokens
// and raw passwords cannot leak into the log stream.
func WithLoggingHTTPMiddleware(h http.Handler) http.Handler {
	logFn := func(response http.ResponseWriter, request *http.Request) {
		start := time.Now()

		outcome := &requestOutcome{}
		recording := &outcomeRecordingWriter{
			ResponseWriter: response,
			outcome:        outcome,
		}
		h.ServeHTTP(recording, request)

		Log.Infow(
			"request served",
			"method", request.Method,
			"uri", request.RequestURI,
			"remote", request.RemoteAddr,
			"status", outcome.status,
			"bytes", outcome.bytes,
			"duration", time.Since(start),
		)
	}

	return http.HandlerFunc(logFn)
}
