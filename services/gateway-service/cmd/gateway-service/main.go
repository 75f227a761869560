package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/libs/auth"
	"github.com/JohanU89-coder/clinica-monteluz/libs/config"
	"github.com/JohanU89-coder/clinica-monteluz/libs/httpx"
	otelx "github.com/JohanU89-coder/clinica-monteluz/libs/otel"
	"github.com/JohanU89-coder/clinica-monteluz/libs/runtime"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = config.LoadDotEnv()
	service := config.String("SERVICE_NAME", "gateway-service")
	logger := runtime.NewLogger(service)
	port, err := config.Port("PORT", "8080")
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

	upstream, err := url.Parse(config.String("CLINIC_URL", "http://clinic-service:8083"))
	if err != nil || upstream.Host == "" {
		logger.Error("invalid CLINIC_URL", "err", err)
		os.Exit(1)
	}

	var jwks *auth.JWKSClient
	if jwksURL := config.String("JWKS_URL", ""); jwksURL != "" {
		jwks = auth.NewJWKSClient(jwksURL, config.Duration("JWKS_CACHE_SECONDS", 5*time.Minute))
	}
	verifier := auth.NewVerifier(auth.VerifierConfig{
		Secret:   config.String("JWT_SECRET", ""),
		JWKS:     jwks,
		Issuer:   config.String("JWT_ISSUER", ""),
		Audience: config.String("JWT_AUDIENCE", ""),
	})

	readyChecks := []runtime.ReadyCheck{}
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	var rateLimitMW httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	registerRoutes(mux, upstream, verifier, otelhttp.NewTransport(http.DefaultTransport))

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS"),
			AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id,Idempotency-Key"),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           config.Duration("CORS_MAX_AGE_SECONDS", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT_SECONDS", 10*time.Second)),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "gateway", otelhttp.WithFilter(func(r *http.Request) bool {
		return !runtime.IsProbe(r)
	}))
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.Serve(ctx, logger, srv, config.Duration("SHUTDOWN_GRACE_SECONDS", 10*time.Second), "upstream", upstream.String())
}
