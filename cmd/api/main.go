package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/application/auth"
	"github.com/JagadeshwaranK/MedPlusMart/internal/application/passcode"
	"github.com/JagadeshwaranK/MedPlusMart/internal/config"
	"github.com/JagadeshwaranK/MedPlusMart/internal/infrastructure/dynamo"
	"github.com/JagadeshwaranK/MedPlusMart/internal/infrastructure/google"
	"github.com/JagadeshwaranK/MedPlusMart/internal/infrastructure/jwks"
	jwtinfra "github.com/JagadeshwaranK/MedPlusMart/internal/infrastructure/jwt"
	"github.com/JagadeshwaranK/MedPlusMart/internal/infrastructure/memory"
	redisinfra "github.com/JagadeshwaranK/MedPlusMart/internal/infrastructure/redis"
	"github.com/JagadeshwaranK/MedPlusMart/internal/infrastructure/sns"
	"github.com/JagadeshwaranK/MedPlusMart/internal/metrics"
	transporthttp "github.com/JagadeshwaranK/MedPlusMart/internal/transport/http"
	appmiddleware "github.com/JagadeshwaranK/MedPlusMart/internal/transport/http/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"
)

// Expired records stay readable this long so a late verify reports Expired
// rather than NotFound.
const expiredRetention = 10 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, limiter, err := buildStores(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	// Production derives codes from the stored secret; every other mode keeps
	// the plain code and echoes it in the response.
	var policy passcode.VerificationPolicy = passcode.NewPlainPolicy()
	if cfg.IsProduction() {
		policy = passcode.NewTOTPPolicy(passcode.DefaultValidity)
	}
	codes := passcode.NewService(store, policy, "MedPlusMart")

	var sender auth.SMSSender = sns.LogSender{Reveal: policy.RevealCode()}
	if cfg.SMSProvider == "sns" {
		if sender, err = sns.NewSender(ctx, cfg); err != nil {
			log.Fatalf("sns sender: %v", err)
		}
	}

	federation, err := buildFederation(ctx, cfg)
	if err != nil {
		log.Fatalf("federation verifier: %v", err)
	}

	tokens, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, cfg.MetricsEnabled)

	// 10 requests/second, burst of 20 on verify and federated login.
	throttle := appmiddleware.NewRateLimiter(ctx, rate.Limit(10), 20, cfg.TrustProxyHeaders)

	deps := &transporthttp.Deps{
		AuthService:   auth.NewService(codes, sender, federation, tokens, m),
		Tokens:        tokens,
		IssuanceLimit: limiter,
		Throttle:      throttle,
		Metrics:       m,
	}
	if cfg.MetricsEnabled {
		deps.Gatherer = reg
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, store=%s, policy=%s)", cfg.AppPort, cfg.AppEnv, cfg.StoreBackend, policy.Name())
		log.Printf("CORS enabled for: %v", cfg.AllowedOrigins)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// buildStores selects the passcode store and the issuance limiter backend.
// DynamoDB has no sliding-window primitive, so it pairs with the in-process limiter.
func buildStores(ctx context.Context, cfg *config.Config) (passcode.Store, appmiddleware.WindowLimiter, error) {
	switch cfg.StoreBackend {
	case "redis":
		client, err := redisinfra.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return redisinfra.NewPasscodeStore(client, cfg.RedisPrefix, expiredRetention),
			redisinfra.NewWindowLimiter(client, cfg.RedisPrefix, cfg.OTPIssueLimit, cfg.OTPIssueWindow), nil
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return dynamo.NewPasscodeStore(client, cfg.DynamoTables.Passcodes, expiredRetention), memoryLimiter(ctx, cfg), nil
	default:
		store := memory.NewPasscodeStore(expiredRetention)
		store.StartSweeper(ctx, time.Minute)
		return store, memoryLimiter(ctx, cfg), nil
	}
}

func memoryLimiter(ctx context.Context, cfg *config.Config) *memory.WindowLimiter {
	l := memory.NewWindowLimiter(cfg.OTPIssueLimit, cfg.OTPIssueWindow)
	l.StartSweeper(ctx, time.Minute)
	return l
}

func buildFederation(ctx context.Context, cfg *config.Config) (auth.FederationVerifier, error) {
	if cfg.FederationProvider == "jwks" {
		slog.Info("federation via JWKS", "url", cfg.FederationJWKSURL)
		return jwks.NewVerifier(cfg.FederationJWKSURL, cfg.FederationAudience,
			jwks.WithIssuers(cfg.FederationIssuers...),
			jwks.WithTimeout(cfg.FederationTimeout),
		), nil
	}
	return google.NewVerifier(ctx, cfg.FederationAudience, cfg.FederationTimeout)
}
