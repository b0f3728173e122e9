// Command server wires the membergate service: stores, token codecs, the
// challenge pipeline, HTTP transport, and the audit worker. Business logic
// lives in the internal packages; main only assembles and supervises.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"membergate/internal/account"
	"membergate/internal/audit"
	"membergate/internal/eligibility"
	"membergate/internal/enrollment"
	enrollmenthandler "membergate/internal/enrollment/handler"
	"membergate/internal/identity"
	"membergate/internal/notify"
	"membergate/internal/platform/config"
	"membergate/internal/platform/httpserver"
	"membergate/internal/platform/logger"
	"membergate/internal/platform/middleware"
	"membergate/internal/platform/postgres"
	"membergate/internal/platform/redis"
	"membergate/internal/registration/challenge"
	"membergate/internal/registration/continuation"
	registrationhandler "membergate/internal/registration/handler"
	registrationmetrics "membergate/internal/registration/metrics"
	registrationservice "membergate/internal/registration/service"
	"membergate/internal/token"
	"membergate/internal/verification"
	verificationmetrics "membergate/internal/verification/metrics"
)

const (
	resendLimit  = 5
	resendWindow = 10 * time.Minute
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		accounts      account.Store
		identities    identity.Store
		users         identity.UserStore
		patients      identity.PatientStore
		leads         identity.LeadStore
		eligibilities eligibility.Store
		otpStore      verification.Store
	)
	if db != nil {
		accounts = account.NewPostgresStore(db)
		identities = identity.NewPostgresStore(db)
		users = identity.NewPostgresUserStore(db)
		patients = identity.NewPostgresPatientStore(db)
		leads = identity.NewPostgresLeadStore(db)
		eligibilities = eligibility.NewPostgresStore(db)
		otpStore = verification.NewPostgresStore(db)
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory stores")
		accounts = account.NewMemoryStore()
		identities = identity.NewMemoryStore()
		users = identity.NewMemoryUserStore()
		patients = identity.NewMemoryPatientStore()
		leads = identity.NewMemoryLeadStore()
		eligibilities = eligibility.NewMemoryStore()
		otpStore = verification.NewMemoryStore()
	}

	var auditStore audit.Store
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaStore, err := audit.NewKafkaStore(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
	} else {
		log.Warn("no KAFKA_BROKERS configured, audit events stay in memory")
		auditStore = audit.NewMemoryStore()
	}
	auditor := audit.NewPublisher(log)

	verificationOpts := []verification.Option{
		verification.WithLogger(log),
		verification.WithMetrics(verificationmetrics.New()),
	}
	if redisClient != nil {
		verificationOpts = append(verificationOpts,
			verification.WithThrottle(verification.NewThrottle(redisClient, resendLimit, resendWindow)))
	}
	verifications, err := verification.New(otpStore, notify.NewLogSender(log), verificationOpts...)
	if err != nil {
		log.Error("verification service init failed", "error", err)
		os.Exit(1)
	}

	enrollments, err := enrollment.New(
		token.NewCodec(cfg.EnrollmentTokenSecret, "membergate"),
		accounts, eligibilities, identities, users,
		cfg.EnrollmentCaps,
		enrollment.WithLogger(log),
	)
	if err != nil {
		log.Error("enrollment service init failed", "error", err)
		os.Exit(1)
	}

	continuations, err := continuation.New(
		token.NewCodec(cfg.ContinuationTokenSecret, "membergate"),
		cfg.ContinuationTokenTTL,
	)
	if err != nil {
		log.Error("continuation service init failed", "error", err)
		os.Exit(1)
	}

	pipeline, err := registrationservice.New(
		continuations, enrollments,
		accounts, identities, users, eligibilities,
		verifications,
		[]challenge.Challenger{
			challenge.NewEnrollment(identities, eligibilities),
			challenge.NewEmail(verifications),
			challenge.NewPhone(verifications, leads, eligibilities),
			challenge.NewPatient(verifications, patients),
			challenge.NewEligibility(identities, eligibilities),
		},
		registrationservice.WithLogger(log),
		registrationservice.WithMetrics(registrationmetrics.New()),
		registrationservice.WithAudit(auditor),
	)
	if err != nil {
		log.Error("pipeline init failed", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RequestTime,
		middleware.ClientMetadata,
		middleware.Recoverer(log),
		middleware.DelegateAuth(cfg.DelegateTokens, log),
	)
	registrationhandler.New(pipeline, log).Register(router)
	enrollmenthandler.New(enrollments, auditor, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return audit.NewWorker(auditStore, auditor.Inbox(), log).Run(ctx)
	})
	group.Go(func() error {
		log.Info("starting membergate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
