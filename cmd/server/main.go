package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"veristay/internal/collegemail"
	"veristay/internal/document"
	"veristay/internal/mailer"
	"veristay/internal/notify"
	"veristay/internal/otp"
	"veristay/internal/platform/config"
	"veristay/internal/platform/httpserver"
	"veristay/internal/platform/logger"
	"veristay/internal/platform/postgres"
	platformredis "veristay/internal/platform/redis"
	"veristay/internal/ratelimit"
	"veristay/internal/subject"
	httptransport "veristay/internal/transport/http"
	"veristay/internal/trust"
	id "veristay/pkg/domain"
	"veristay/pkg/platform/audit"
	auditkafka "veristay/pkg/platform/audit/kafka"
	auditmemory "veristay/pkg/platform/audit/store/memory"
	auditpostgres "veristay/pkg/platform/audit/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("configuration invalid")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres unavailable")
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("schema migration failed")
		}
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		subjects   subject.Store
		documents  document.Store
		emails     collegemail.Store
		auditStore audit.Store
	)
	if db != nil {
		subjects = subject.NewPostgresStore(db)
		documents = document.NewPostgresStore(db)
		emails = collegemail.NewPostgresStore(db)
		auditStore = auditpostgres.New(db)
	} else {
		log.Warn().Msg("no postgres DSN configured, using in-memory stores")
		subjects = subject.NewInMemoryStore()
		documents = document.NewInMemoryStore()
		emails = collegemail.NewInMemoryStore()
		auditStore = auditmemory.New()
	}

	var challenges otp.ChallengeStore
	if redisClient != nil {
		challenges = otp.NewRedisChallengeStore(redisClient.Client)
	} else {
		challenges = otp.NewInMemoryChallengeStore()
	}

	var sinks []audit.Sink
	if len(cfg.Audit.KafkaBrokers) > 0 {
		publisher, err := auditkafka.New(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			log.Fatal().Err(err).Msg("kafka audit sink unavailable")
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	auditor := audit.NewRecorder(auditStore, log, sinks...)

	var mail mailer.Mailer
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTP)
	} else {
		log.Warn().Msg("no SMTP host configured, logging outbound mail")
		mail = mailer.NewLogMailer(log)
	}
	var notifier notify.Notifier
	if cfg.SMTP.Host != "" {
		lookup := func(ctx context.Context, subjectID id.SubjectID) (string, error) {
			sub, err := subjects.FindByID(ctx, subjectID)
			if err != nil {
				return "", err
			}
			return sub.Email, nil
		}
		notifier = notify.NewMailNotifier(mail, lookup, cfg.Notify.AdminEmails, log)
	} else {
		notifier = notify.NewLogNotifier(log)
	}

	trustSvc := trust.NewService(subjects, documents, log)
	documentSvc := document.NewService(documents, trustSvc, auditor, notifier, log)
	provider := otp.GuardProvider(otp.SelectProvider(cfg.OTP.Provider, log), log)
	otpSvc := otp.NewService(provider, challenges, cfg.OTP.ChallengeTTL, trustSvc, auditor, notifier, log)
	classifier := collegemail.NewClassifier(cfg.Email.AllowedDomains, cfg.Email.AcademicSuffixes)
	emailSvc := collegemail.NewService(emails, classifier, mail, trustSvc, auditor, notifier,
		cfg.Email.TokenTTL, cfg.Email.ConfirmBaseURL, log)

	var limits ratelimit.Store
	if redisClient != nil {
		limits = ratelimit.NewRedisStore(redisClient.Client)
	} else {
		limits = ratelimit.NewInMemoryStore()
	}

	handler := httptransport.NewHandler(subjects, trustSvc, documentSvc, otpSvc, emailSvc,
		auditStore, limits, cfg.HTTP.AdminJWTSecret, log)
	var health []func(context.Context) error
	if db != nil {
		health = append(health, db.PingContext)
	}
	if redisClient != nil {
		health = append(health, redisClient.Health)
	}
	handler.SetHealthChecks(health...)
	server := httpserver.New(cfg.HTTP.Addr, httptransport.NewRouter(handler))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Addr).Str("otp_provider", provider.Name()).Msg("listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shutdown complete")
}
