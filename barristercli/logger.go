package barristercli

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/barrister"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var loggerKey contextKey = "barrister/cli/logger"

// NewLogger returns a new `*zap.Logger`. If stdout is a TTY it uses colored
// development output, otherwise JSON production output.
func NewLogger(debug bool) (*zap.Logger, error) {
	var config zap.Config
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.EncoderConfig.EncodeTime = iso8601UTCTimeEncoder

	if debug {
		config.Level.SetLevel(zapcore.DebugLevel)
	} else {
		config.Level.SetLevel(zapcore.InfoLevel)
	}

	return config.Build()
}

// A UTC variation of ZapCore.ISO8601TimeEncoder with millisecond precision
func iso8601UTCTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format("2006-01-02T15:04:05.000Z"))
}

// WithLogger returns a context carrying the logger.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// GetLogger returns the request logger from the context, or a no-op logger
// if none was set.
func GetLogger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// LogRequests is HTTP middleware which stores a request-scoped logger in the
// context and logs each exchange once it completes. Failed exchanges are
// logged as errors, everything else at debug level.
func LogRequests(l *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := l.With(
				zap.String("http.method", r.Method),
				zap.String("http.path", r.URL.Path),
				zap.String("network.client.ip", r.RemoteAddr),
			)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(WithLogger(r.Context(), reqLogger)))

			fields := []zap.Field{
				zap.Int("http.status_code", rec.status),
				zap.Int("http.response_size", rec.size),
				zap.Duration("duration", time.Since(start)),
			}
			if rec.status >= http.StatusBadRequest {
				reqLogger.Error("Request failed", fields...)
			} else {
				reqLogger.Debug("Request completed", fields...)
			}
		})
	}
}

// LogCalls is call middleware which logs each dispatched function call with
// its outcome. Calls which return an error are logged at info level.
func LogCalls(l *zap.Logger) barrister.Middleware {
	return func(next barrister.Func) barrister.Func {
		return func(ctx context.Context, params []any) (any, error) {
			start := time.Now()
			callLogger := l
			if info, ok := barrister.GetCallInfo(ctx); ok {
				callLogger = l.With(
					zap.String("rpc.method", info.Method),
					zap.Any("rpc.id", info.RequestID),
				)
			}

			result, err := next(ctx, params)

			if err != nil {
				callLogger.Info("Call failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			} else {
				callLogger.Debug("Call completed", zap.Duration("duration", time.Since(start)))
			}
			return result, err
		}
	}
}
