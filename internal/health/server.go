// Package health serves the standard gRPC health protocol, reporting SERVING while the
// database answers pings.
package health

import (
	"context"
	"net"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the service reported alongside the overall ("") status.
const ServiceName = "worshipScheduling.API"

// Pinger reports database reachability; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Prober keeps the health status in sync with the database.
type Prober struct {
	db       Pinger
	hs       *health.Server
	interval time.Duration
	logger   *log.Logger
	serving  bool
}

func NewProber(db Pinger, hs *health.Server, interval time.Duration, logger *log.Logger) *Prober {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Prober{db: db, hs: hs, interval: interval, logger: logger}
}

// Probe pings once and updates the status. Transitions are logged.
func (p *Prober) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := p.db.PingContext(ctx)
	st := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	p.hs.SetServingStatus("", st)
	p.hs.SetServingStatus(ServiceName, st)
	if ok := err == nil; ok != p.serving {
		p.serving = ok
		if ok {
			p.logger.Info("database reachable", "status", st.String())
		} else {
			p.logger.Warn("database unreachable", "status", st.String(), "err", err)
		}
	}
	return err == nil
}

// Run probes on every tick until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Probe(ctx)
		}
	}
}

func loggingInterceptor(logger *log.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("grpc call", "method", info.FullMethod, "code", status.Code(err).String(), "latency", time.Since(start))
		return resp, err
	}
}

// Start starts the gRPC health server on the given address and returns the bound
// address and a shutdown function.
func Start(addr string, db Pinger, interval time.Duration, logger *log.Logger) (string, func(context.Context) error, error) {
	if logger == nil {
		logger = log.Default()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}

	srv := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(logger)))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	prober := NewProber(db, hs, interval, logger)
	probeCtx, stopProbe := context.WithCancel(context.Background())
	prober.Probe(probeCtx)
	go prober.Run(probeCtx)

	go func() {
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc health server stopped", "err", err)
		}
	}()

	return lis.Addr().String(), func(ctx context.Context) error {
		stopProbe()
		hs.Shutdown()
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}
