// Package grpc runs the operational gRPC endpoint: the standard
// grpc.health.v1.Health service, whose status follows the relational
// store's reachability, plus server reflection for grpcurl.
//
//	srv, err := grpc.New(grpc.Options{Port: config.GRPCPort(), Probe: dbPing})
//	go srv.Serve()
//	go srv.Watch(ctx, 10*time.Second)
//	...
//	srv.Stop()
package grpc

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/metrics"
)

// ServiceName is the health-check service name reported alongside "".
const ServiceName = "storefront"

var (
	handledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "grpc",
		Name:      "handled_total",
		Help:      "gRPC calls completed, by method and code.",
	}, []string{"method", "code"})

	handlingSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "grpc",
		Name:      "handling_seconds",
		Help:      "gRPC response latency in seconds.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"method"})
)

func init() {
	metrics.MustRegister(handledTotal, handlingSeconds)
}

// recoveryInterceptor turns a handler panic into codes.Internal.
func recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("grpc: panic recovered", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// observeInterceptor logs and records every unary call.
func observeInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	dur := time.Since(start)

	code := status.Code(err)
	handledTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
	handlingSeconds.WithLabelValues(info.FullMethod).Observe(dur.Seconds())
	logger.Debug("grpc: request", "method", info.FullMethod, "duration_ms", dur.Milliseconds(), "code", code.String())
	return resp, err
}

// Probe reports whether the service can do its work.
type Probe func(ctx context.Context) error

type Options struct {
	Port  string
	Probe Probe
}

// Server is the gRPC listener plus its health state.
type Server struct {
	srv    *grpc.Server
	lis    net.Listener
	health *health.Server
	probe  Probe
}

// New listens on opts.Port and registers the health and reflection
// services. Health starts NOT_SERVING until the first successful probe.
func New(opts Options) (*Server, error) {
	lis, err := net.Listen("tcp", ":"+opts.Port)
	if err != nil {
		return nil, fmt.Errorf("grpc: listen on :%s: %w", opts.Port, err)
	}
	return newServer(lis, opts.Probe), nil
}

func newServer(lis net.Listener, probe Probe) *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(recoveryInterceptor, observeInterceptor),
		grpc.MaxRecvMsgSize(1<<20),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &Server{srv: srv, lis: lis, health: hs, probe: probe}
}

// Addr is the bound listen address.
func (s *Server) Addr() net.Addr { return s.lis.Addr() }

// Serve blocks until Stop.
func (s *Server) Serve() error {
	logger.Info("gRPC server starting", "addr", s.lis.Addr().String())
	if err := s.srv.Serve(s.lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// Refresh runs the probe once and publishes the result.
func (s *Server) Refresh(ctx context.Context) {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	if s.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.probe(pctx)
		cancel()
		if err != nil {
			st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			logger.Warn("grpc: readiness probe failed", "error", err)
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Watch refreshes the health status every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	s.Refresh(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Refresh(ctx)
		}
	}
}

// Stop marks the service as shutting down and waits for in-flight RPCs.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	logger.Info("gRPC server shutting down")
	s.health.Shutdown()
	s.srv.GracefulStop()
}
