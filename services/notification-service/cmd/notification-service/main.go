package main

import (
	"context"
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
	"github.com/JohanU89-coder/clinica-monteluz/services/notification-service/internal/consumer"
	"github.com/JohanU89-coder/clinica-monteluz/services/notification-service/internal/email"
	"github.com/JohanU89-coder/clinica-monteluz/services/notification-service/internal/inbox"
	"github.com/JohanU89-coder/clinica-monteluz/services/notification-service/internal/processor"
	"github.com/JohanU89-coder/clinica-monteluz/services/notification-service/internal/storage"
	"github.com/JohanU89-coder/clinica-monteluz/services/notification-service/internal/templates"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = config.LoadDotEnv()
	service := config.String("SERVICE_NAME", "notification-service")
	logger := runtime.NewLogger(service)
	port, err := config.Port("PORT", "8085")
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

	var sender email.Sender
	if host := config.String("SMTP_HOST", ""); host != "" {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     host,
			Port:     config.String("SMTP_PORT", "1025"),
			From:     config.String("SMTP_FROM", ""),
			Username: config.String("SMTP_USERNAME", ""),
			Password: config.String("SMTP_PASSWORD", ""),
		})
	} else {
		sender = email.NewLogSender(logger)
	}

	proc := processor.New(pool, inbox.NewRepository(), storage.NewRepository(),
		templates.NewRenderer(loc, config.String("CLINIC_NAME", "")), sender, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	eventConsumer := consumer.New(logger, consumer.Config{
		Brokers: brokers,
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topics: config.List("KAFKA_CONSUME_TOPICS", templates.TypeAppointmentBooked+","+
			templates.TypeAppointmentCancelled+","+templates.TypePrescriptionIssued),
	}, proc.Handle)
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification", otelhttp.WithFilter(func(r *http.Request) bool {
		return !runtime.IsProbe(r)
	}))
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.Serve(ctx, logger, srv, config.Duration("SHUTDOWN_GRACE_SECONDS", 10*time.Second), "email_provider", sender.ProviderID())
}
