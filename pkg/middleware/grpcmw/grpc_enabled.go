//go:build grpc

package grpcmw

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/hyp3rd/sinklog"
	"github.com/hyp3rd/sinklog/internal/constants"
	"github.com/hyp3rd/sinklog/pkg/dispatch"
)

func actualOptions(opts ...Option) options {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.source == "" {
		cfg.source = defaultSource
	}

	if cfg.requestKey == "" {
		cfg.requestKey = constants.RequestMetadataKey
	}

	return cfg
}

// UnaryServerInterceptor stores the request id from incoming metadata in the
// context and logs method, status code and latency of every unary call.
func UnaryServerInterceptor(d *dispatch.Dispatcher, opts ...Option) grpc.UnaryServerInterceptor {
	cfg := actualOptions(opts...)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, requestID := withRequestID(ctx, cfg.requestKey)
		start := time.Now()

		resp, err := handler(ctx, req)

		logCall(d, cfg.source, "unary", methodName(info), requestID, err, time.Since(start))

		return resp, err
	}
}

// StreamServerInterceptor logs every streaming call once the stream ends.
func StreamServerInterceptor(d *dispatch.Dispatcher, opts ...Option) grpc.StreamServerInterceptor {
	cfg := actualOptions(opts...)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, requestID := withRequestID(ss.Context(), cfg.requestKey)
		start := time.Now()

		err := handler(srv, &contextStream{ServerStream: ss, ctx: ctx})

		method := ""
		if info != nil {
			method = info.FullMethod
		}

		logCall(d, cfg.source, "stream", method, requestID, err, time.Since(start))

		return err
	}
}

type contextStream struct {
	grpc.ServerStream

	ctx context.Context
}

func (s *contextStream) Context() context.Context {
	return s.ctx
}

func withRequestID(ctx context.Context, key string) (context.Context, string) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, ""
	}

	values := md.Get(key)
	if len(values) == 0 || values[0] == "" {
		return ctx, ""
	}

	return context.WithValue(ctx, constants.RequestKey{}, values[0]), values[0]
}

func methodName(info *grpc.UnaryServerInfo) string {
	if info == nil {
		return ""
	}

	return info.FullMethod
}

func logCall(d *dispatch.Dispatcher, source, kind, method, requestID string, err error, latency time.Duration) {
	if d == nil || !d.IsEnabled(sinklog.CategoryProtocol) {
		return
	}

	code := status.Code(err)
	if code == codes.OK {
		d.Writef(sinklog.CategoryProtocol, source, "%s %s %s %s request_id=%s",
			kind, method, code, latency, requestID)

		return
	}

	d.Writef(sinklog.CategoryProtocol, source, "%s %s %s %s request_id=%s error=%v",
		kind, method, code, latency, requestID, err)
}
