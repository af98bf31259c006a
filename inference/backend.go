package inference

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Backend is the protocol-specific transport to an inference server. Both
// variants expose the same capabilities and return explicit errors; turning
// them into sentinels is left to the caller.
type Backend interface {
	IsServerLive(ctx context.Context) (bool, error)
	ModelMetadata(ctx context.Context, modelName string) (*ModelMetadata, error)
	ModelConfig(ctx context.Context, modelName string) (*ModelConfig, error)
	RepositoryIndex(ctx context.Context) ([]ModelIndex, error)
	Infer(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// Options tune backend construction. Zero values keep the transport defaults.
type Options struct {
	// Timeout bounds each call when positive.
	Timeout time.Duration
	Logger  *zap.Logger

	HTTPClient  *http.Client
	DialOptions []grpc.DialOption
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// NewBackend builds the backend for protocol. Any protocol other than http
// or grpc is a configuration error.
func NewBackend(protocol Protocol, endpoint string, opts Options) (Backend, error) {
	switch Protocol(strings.ToLower(string(protocol))) {
	case ProtocolHTTP:
		return NewRESTBackend(endpoint, opts), nil
	case ProtocolGRPC:
		return NewRPCBackend(endpoint, opts)
	default:
		return nil, fmt.Errorf("%w: protocol must be %q or %q, got %q", ErrConfiguration, ProtocolHTTP, ProtocolGRPC, protocol)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}

func isUnknownModelMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "unknown model") || strings.Contains(msg, "not found")
}
