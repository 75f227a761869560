package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/libs/config"
	"github.com/JohanU89-coder/clinica-monteluz/libs/db"
	"github.com/JohanU89-coder/clinica-monteluz/libs/grpcx"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthService is the name clinicctl probes in addition to "".
const healthService = "clinic.v1.Clinic"

func startGrpcServer(ctx context.Context, logger *slog.Logger, pool *db.Pool) error {
	port, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv := grpcx.NewServer(logger)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go watchDatabase(ctx, hs, db.ReadyCheck(pool), config.Duration("GRPC_HEALTH_INTERVAL", 5*time.Second))

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()

	return nil
}

// watchDatabase flips the health status with database reachability.
func watchDatabase(ctx context.Context, hs *health.Server, check func(context.Context) error, every time.Duration) {
	update := func() {
		status := healthpb.HealthCheckResponse_SERVING
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := check(checkCtx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		cancel()
		hs.SetServingStatus("", status)
		hs.SetServingStatus(healthService, status)
	}
	update()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}
