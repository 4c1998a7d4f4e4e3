// Package grpcmw logs gRPC calls into a dispatch.Dispatcher as
// sinklog.CategoryProtocol events. The interceptors are functional only when
// built with the "grpc" tag.
package grpcmw

import (
	"context"

	"github.com/hyp3rd/sinklog/internal/constants"
)

const defaultSource = "grpc"

// Option defines a configuration option for the gRPC middleware.
type Option func(*options)

type options struct {
	source     string
	requestKey string
}

// WithSource customizes the event source. Defaults to "grpc".
func WithSource(source string) Option {
	return func(o *options) {
		if o == nil || source == "" {
			return
		}

		o.source = source
	}
}

// WithRequestKey customizes the metadata key used to populate the request identifier.
func WithRequestKey(name string) Option {
	return func(o *options) {
		if o == nil || name == "" {
			return
		}

		o.requestKey = name
	}
}

// RequestID returns the request id stored by the interceptors, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(constants.RequestKey{}).(string)

	return id
}
