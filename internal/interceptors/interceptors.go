// Package interceptors chains the server-side stream interceptors the
// facade's Validate RPC runs behind: panic recovery, structured
// logging, and Prometheus metrics. The teacher's pkg/interceptors also
// carries rate-limiting and audit-method-exclusion interceptors; this
// module has no rate limiter or audit log to wire them to (SPEC_FULL
// scopes those out), so only the logging/metrics/recovery layers and
// the chain-builder shape survive here. Validate is the only RPC this
// service exposes and it is server-streaming, so only the stream
// variants are built — there is no unary chain to mirror.
package interceptors

import (
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rove/internal/logger"
	"rove/internal/metrics"
)

// Config controls which interceptors Chain assembles.
type Config struct {
	ServiceName string
}

// Chain returns the full stream interceptor chain in execution order:
// recovery first so a panic anywhere downstream is always caught, then
// auth (if non-nil) so unauthenticated calls never reach a handler,
// then metrics and logging innermost. Metrics and logging wrap only the
// handler: a call rejected by auth never reaches them, and a panic
// unwinds through them before recovery turns it into an error.
func Chain(cfg Config, auth grpc.StreamServerInterceptor) grpc.StreamServerInterceptor {
	chain := []grpc.StreamServerInterceptor{StreamRecoveryInterceptor()}
	if auth != nil {
		chain = append(chain, auth)
	}
	chain = append(chain, StreamMetricsInterceptor(cfg.ServiceName), StreamLoggingInterceptor())
	return chainStream(chain...)
}

func chainStream(interceptors ...grpc.StreamServerInterceptor) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			chain = buildStreamChain(interceptors[i], chain, info)
		}
		return chain(srv, ss)
	}
}

func buildStreamChain(current grpc.StreamServerInterceptor, next grpc.StreamHandler, info *grpc.StreamServerInfo) grpc.StreamHandler {
	return func(srv any, ss grpc.ServerStream) error {
		return current(srv, ss, info, next)
	}
}

// StreamRecoveryInterceptor turns a panic anywhere in the stream
// handler into a codes.Internal error instead of crashing the
// process. The teacher's interceptor chain calls a
// StreamRecoveryInterceptor of its own, but pkg/interceptors never
// actually defines one anywhere in that package; this is a from-scratch
// equivalent built in the same position in the chain.
func StreamRecoveryInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Error("panic in stream handler",
					"method", info.FullMethod,
					"panic", fmt.Sprint(r),
				)
				err = status.Errorf(codes.Internal, "internal error")
			}
		}()
		return handler(srv, ss)
	}
}

// StreamLoggingInterceptor logs one line per completed stream.
func StreamLoggingInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		duration := time.Since(start)

		st, _ := status.FromError(err)
		if err != nil {
			logger.Log.Error("grpc stream failed",
				"method", info.FullMethod,
				"duration_ms", duration.Milliseconds(),
				"code", st.Code().String(),
				"error", err.Error(),
			)
		} else {
			logger.Log.Info("grpc stream completed",
				"method", info.FullMethod,
				"duration_ms", duration.Milliseconds(),
				"code", st.Code().String(),
			)
		}
		return err
	}
}

// StreamMetricsInterceptor records one RecordRequest observation per
// completed stream, labelled by the RPC's full method name.
func StreamMetricsInterceptor(serviceName string) grpc.StreamServerInterceptor {
	m := metrics.Get()
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		err := handler(srv, ss)
		duration := time.Since(start)

		statusStr := "OK"
		if err != nil {
			st, _ := status.FromError(err)
			statusStr = st.Code().String()
		}
		m.RecordRequest(info.FullMethod, statusStr, duration)
		return err
	}
}
