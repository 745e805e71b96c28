package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/virtual-id-api/internal/application/notification"
	"github.com/virtual-id-api/internal/application/otp"
	"github.com/virtual-id-api/internal/config"
	"github.com/virtual-id-api/internal/infrastructure/awsconf"
	"github.com/virtual-id-api/internal/infrastructure/dynamo"
	"github.com/virtual-id-api/internal/infrastructure/imagefetch"
	jwtinfra "github.com/virtual-id-api/internal/infrastructure/jwt"
	"github.com/virtual-id-api/internal/infrastructure/memory"
	"github.com/virtual-id-api/internal/infrastructure/pass2u"
	"github.com/virtual-id-api/internal/infrastructure/redis"
	s3infra "github.com/virtual-id-api/internal/infrastructure/s3"
	"github.com/virtual-id-api/internal/infrastructure/sendgrid"
	"github.com/virtual-id-api/internal/infrastructure/smtp"
	"github.com/virtual-id-api/internal/infrastructure/sns"
	"github.com/virtual-id-api/internal/pkg/clock"
	"github.com/virtual-id-api/internal/pkg/logging"
	transporthttp "github.com/virtual-id-api/internal/transport/http"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := logging.New(logging.Config{
		Service: "virtual-id-api",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, reading from environment")
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	clk := clock.System{}

	// AWS config is only needed by the dynamo store, the S3 archive and SNS events.
	var awsCfg aws.Config
	if cfg.OTPStoreDriver == config.OTPStoreDynamo || cfg.S3BucketName != "" || cfg.SNSTopicARN != "" {
		c, err := awsconf.Load(ctx, cfg)
		if err != nil {
			logger.Error("load aws config", "err", err)
			os.Exit(1)
		}
		awsCfg = c
	}

	store, closeStore, err := newOTPStore(ctx, cfg, awsCfg)
	if err != nil {
		logger.Error("init otp store", "driver", cfg.OTPStoreDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	deps := &transporthttp.Deps{
		Logger:   logger,
		Clock:    clk,
		OTPStore: store,
		Mailer:   newMailer(cfg),
		Fetcher:  imagefetch.NewFetcher(nil, 0),
		Vendor: pass2u.NewClient(pass2u.Config{
			BaseURL:         cfg.Pass2UBaseURL,
			DistributionURL: cfg.Pass2UDistributionURL,
			APIKey:          cfg.Pass2UAPIKey,
			ModelID:         cfg.Pass2UModelID,
		}, nil),
	}

	// JWT provider (optional, verification tokens are omitted without keys).
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		deps.JWTProvider = p
	} else {
		logger.Warn("JWT provider not available", "err", err)
		if cfg.RequireVerifiedSession {
			logger.Error("REQUIRE_VERIFIED_SESSION is set but no signing keys are available")
			os.Exit(1)
		}
	}

	// Pass archive and pass events (optional).
	if cfg.S3BucketName != "" {
		deps.PassArchive = s3infra.NewPassArchive(s3infra.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.S3BucketName)
	}
	if cfg.SNSTopicARN != "" {
		deps.Events = sns.NewEventPublisher(sns.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.SNSTopicARN)
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // send-id-card runs the whole pass pipeline
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"otp_store", cfg.OTPStoreDriver, "mail_driver", cfg.MailDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "err", err)
	}
	logger.Info("server stopped")
}

func newOTPStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (otp.Store, func(), error) {
	switch cfg.OTPStoreDriver {
	case config.OTPStoreRedis:
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewOTPStore(client), func() { _ = client.Close() }, nil
	case config.OTPStoreDynamo:
		client := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
		if cfg.DynamoBootstrap {
			dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		}
		return dynamo.NewOTPStore(client, cfg.DynamoTables.OTPs), func() {}, nil
	default:
		return memory.NewOTPStore(), func() {}, nil
	}
}

func newMailer(cfg *config.Config) notification.Mailer {
	if cfg.MailDriver == config.MailDriverSMTP {
		return smtp.NewMailer(cfg)
	}
	return sendgrid.NewMailer(cfg.SendGridAPIKey)
}
