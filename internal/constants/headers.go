package constants

const (
	// RequestHeader is the default HTTP header carrying the request id.
	RequestHeader = "X-Request-ID"
	// RequestMetadataKey is the default gRPC metadata key carrying the request id.
	RequestMetadataKey = "x-request-id"
)

// RequestKey is the context key under which middleware stores the request id.
type RequestKey struct{}
