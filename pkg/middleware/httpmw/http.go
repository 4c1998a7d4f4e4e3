// Package httpmw logs HTTP requests into a dispatch.Dispatcher. Every
// request produces one sinklog.CategoryProtocol event once the handler
// returns.
package httpmw

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/hyp3rd/sinklog"
	"github.com/hyp3rd/sinklog/internal/constants"
	"github.com/hyp3rd/sinklog/pkg/dispatch"
)

const (
	randomIDLength = 16
	defaultSource  = "http"
)

// Option configures the behaviour of the RequestLogger.
type Option func(*options)

type options struct {
	source         string
	requestHeader  string
	idGenerator    func() string
	generateIfMiss bool
}

// WithSource sets the event source. Defaults to "http".
func WithSource(source string) Option {
	return func(o *options) {
		if source != "" {
			o.source = source
		}
	}
}

// WithRequestHeader configures the header used to populate the request id.
func WithRequestHeader(name string) Option {
	return func(o *options) {
		if name != "" {
			o.requestHeader = name
		}
	}
}

// WithIDGenerator provides a custom generator used when headers are missing.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.idGenerator = fn
		}
	}
}

// WithGenerateMissingIDs instructs the middleware to create ids when headers are absent.
func WithGenerateMissingIDs(enable bool) Option {
	return func(o *options) {
		o.generateIfMiss = enable
	}
}

// RequestID returns the request id stored by RequestLogger, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(constants.RequestKey{}).(string)

	return id
}

// RequestLogger returns middleware that stores the request id in the request
// context, echoes it in the response and logs method, path, status and
// latency through d.
func RequestLogger(d *dispatch.Dispatcher, opts ...Option) func(http.Handler) http.Handler {
	cfg := options{
		source:         defaultSource,
		requestHeader:  constants.RequestHeader,
		idGenerator:    randomID,
		generateIfMiss: true,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			requestID := r.Header.Get(cfg.requestHeader)
			if requestID == "" && cfg.generateIfMiss {
				requestID = cfg.idGenerator()
			}

			if requestID != "" {
				ctx = context.WithValue(ctx, constants.RequestKey{}, requestID)
				w.Header().Set(cfg.requestHeader, requestID)
			}

			recorder := &responseWriter{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(recorder, r.WithContext(ctx))

			if d == nil || !d.IsEnabled(sinklog.CategoryProtocol) {
				return
			}

			d.Writef(sinklog.CategoryProtocol, cfg.source, "%s %s %d %s request_id=%s",
				r.Method, r.URL.Path, recorder.Status(), time.Since(start), requestID)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter

	status int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.status == 0 {
		rw.status = statusCode
	}

	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}

	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}

	return rw.status
}

func randomID() string {
	bytes := make([]byte, randomIDLength)

	_, err := rand.Read(bytes)
	if err != nil {
		return ""
	}

	return hex.EncodeToString(bytes)
}
