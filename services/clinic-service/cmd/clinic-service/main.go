package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/JohanU89-coder/clinica-monteluz/libs/config"
	"github.com/JohanU89-coder/clinica-monteluz/libs/db"
	"github.com/JohanU89-coder/clinica-monteluz/libs/httpx"
	"github.com/JohanU89-coder/clinica-monteluz/libs/kafkax"
	otelx "github.com/JohanU89-coder/clinica-monteluz/libs/otel"
	"github.com/JohanU89-coder/clinica-monteluz/libs/runtime"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/appointments"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/availability"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/booking"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/directory"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/export"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/handlers"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/history"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/locks"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/outbox"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/prescriptions"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/schedules"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("load .env", "err", err)
		os.Exit(1)
	}
	service := config.String("SERVICE_NAME", "clinic-service")
	logger := runtime.NewLogger(service)
	port, err := config.Port("PORT", "8083")
	if err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc, err := time.LoadLocation(config.String("CLINIC_TIMEZONE", "America/Lima"))
	if err != nil {
		logger.Error("invalid CLINIC_TIMEZONE", "err", err)
		os.Exit(1)
	}
	horizon := config.Int("SLOT_HORIZON_DAYS", availability.ShortHorizonDays)
	if horizon > availability.LongHorizonDays {
		horizon = availability.LongHorizonDays
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	}

	// Slot holds are optional; without Redis the database constraint alone
	// arbitrates concurrent bookings.
	var locker booking.SlotLocker
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		locker = locks.NewSlotLocker(rdb, config.Duration("SLOT_LOCK_TTL_SECONDS", 10*time.Second))
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("slot holds enabled (redis)", "redis_addr", addr)
	}

	scheduleRepo := storage.NewScheduleRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool)
	prescriptionRepo := storage.NewPrescriptionRepository(pool)
	profileRepo := storage.NewProfileRepository(pool)
	specialtyRepo := storage.NewSpecialtyRepository(pool)
	dependentRepo := storage.NewDependentRepository(pool)
	idempotencyRepo := storage.NewIdempotencyRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	bookingSvc := booking.NewService(booking.Deps{
		Tx:           pool,
		Schedules:    scheduleRepo,
		Appointments: appointmentRepo,
		Guardians:    dependentRepo,
		Events:       outboxRepo,
		Locker:       locker,
		Idempotency:  idempotencyRepo,
		Contacts:     profileRepo,
	}, logger, booking.Config{
		Location:       loc,
		SlotDuration:   time.Duration(config.Int("SLOT_DURATION_MINUTES", 30)) * time.Minute,
		MaxHorizonDays: availability.LongHorizonDays,
	})

	api := handlers.New(handlers.Services{
		Booking:       bookingSvc,
		Schedules:     schedules.NewService(scheduleRepo, logger),
		Appointments:  appointments.NewService(pool, appointmentRepo, dependentRepo, outboxRepo, profileRepo, logger),
		Prescriptions: prescriptions.NewService(pool, prescriptionRepo, appointmentRepo, outboxRepo, profileRepo, logger),
		History:       history.NewService(appointmentRepo),
		Directory:     directory.NewService(profileRepo, specialtyRepo, dependentRepo),
		Documents:     export.NewRenderer(loc, config.String("CLINIC_NAME", "")),
	}, logger, horizon)

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	if err := startGrpcServer(ctx, logger, pool); err != nil {
		logger.Error("grpc server init failed", "err", err)
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	api.Register(mux)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
	)
	handler = otelhttp.NewHandler(handler, "clinic", otelhttp.WithFilter(func(r *http.Request) bool {
		return !runtime.IsProbe(r)
	}))
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.Serve(ctx, logger, srv, config.Duration("SHUTDOWN_GRACE_SECONDS", 10*time.Second), "timezone", loc.String(), "horizon_days", horizon)
}
