package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Doetheman/community-platform-template/pkg/auth"
	"github.com/Doetheman/community-platform-template/pkg/config"
	"github.com/Doetheman/community-platform-template/pkg/db"
	"github.com/Doetheman/community-platform-template/pkg/firebaseapp"
	"github.com/Doetheman/community-platform-template/pkg/mq"
	"github.com/Doetheman/community-platform-template/pkg/obs"

	httpx "github.com/Doetheman/community-platform-template/services/payment-service/internal/http"
	"github.com/Doetheman/community-platform-template/services/payment-service/internal/repository"
	"github.com/Doetheman/community-platform-template/services/payment-service/internal/service"
	stripecli "github.com/Doetheman/community-platform-template/services/payment-service/internal/stripe"
)

type Cfg struct {
	HTTPAddr string `envconfig:"PAYMENT_HTTP_ADDR" default:":8081"`

	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	DeepLinkDomain      string `envconfig:"DEEP_LINK_DOMAIN" required:"true"`
	Currency            string `envconfig:"CHECKOUT_CURRENCY" default:"usd"`
	PricingPolicy       string `envconfig:"CHECKOUT_PRICING_POLICY" default:"event"`      // event|caller
	WriteFailurePolicy  string `envconfig:"WEBHOOK_WRITE_FAILURE_POLICY" default:"acknowledge"` // acknowledge|redeliver

	AuthMode  string `envconfig:"AUTH_MODE" default:"firebase"` // firebase|jwt
	JWTSecret string `envconfig:"JWT_SECRET" default:""`
	JWTIssuer string `envconfig:"JWT_ISSUER" default:""`

	// reservation.paid is published only when set
	RabbitURL       string `envconfig:"RABBIT_URL" default:""`
	PaymentExchange string `envconfig:"PAYMENT_EXCHANGE" default:"payment.exchange"`

	config.Store
}

type store interface {
	service.EventReader
	service.ReservationWriter
}

func main() {
	var cfg Cfg
	rt, err := config.Load(&cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("[payment] load config")
	}
	logger := obs.NewLogger("payment-service", rt.LogLevel, rt.IsProduction())
	if err := run(rt, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("[payment] exited")
	}
}

func run(rt config.Runtime, cfg Cfg, logger zerolog.Logger) error {
	if err := cfg.Store.Validate(); err != nil {
		return err
	}
	pricing, err := service.ParsePricingPolicy(cfg.PricingPolicy)
	if err != nil {
		return err
	}
	policy, err := httpx.ParseWriteFailurePolicy(cfg.WriteFailurePolicy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, "payment-service", rt.OTLPEndpoint, rt.AppEnv)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	var app *firebase.App
	if cfg.Backend == "firestore" || cfg.AuthMode == "firebase" {
		app, err = firebaseapp.New(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials)
		if err != nil {
			return err
		}
	}

	repo, closeRepo, err := openStore(ctx, cfg.Store, app)
	if err != nil {
		return err
	}
	defer closeRepo()

	verifier, err := newVerifier(ctx, cfg, app)
	if err != nil {
		return err
	}

	var pub mq.JSONPublisher
	if cfg.RabbitURL != "" {
		p, err := mq.NewPublisher(cfg.RabbitURL, cfg.PaymentExchange, "payment-service")
		if err != nil {
			return err
		}
		defer p.Close()
		pub = p
	}

	metrics := obs.NewMetrics("payment")
	stripeClient := stripecli.NewClient(cfg.StripeSecretKey)
	checkout := service.NewCheckoutSvc(repo, stripeClient, service.CheckoutConfig{
		DeepLinkDomain: cfg.DeepLinkDomain,
		Currency:       cfg.Currency,
		Pricing:        pricing,
	})
	reservations := service.NewReservationSvc(repo)

	if rt.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpx.NewRouter(httpx.RouterDeps{
		Logger:   logger,
		Verifier: verifier,
		Callable: httpx.NewCallableServer(checkout, metrics),
		Webhook:  httpx.NewWebhookServer(stripecli.NewWebhookVerifier(cfg.StripeWebhookSecret), reservations, pub, policy, metrics),
		Metrics:  metrics,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("pricing", string(pricing)).
			Str("write_failure_policy", string(policy)).Msg("[payment] http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	err = g.Wait()
	logger.Info().Msg("[payment] stopped")
	return err
}

func openStore(ctx context.Context, sc config.Store, app *firebase.App) (store, func(), error) {
	switch sc.Backend {
	case "postgres":
		gdb, err := db.Open(sc.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewPostgresRepo(gdb)
		if err := repo.Migrate(); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return repo, func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	default:
		fs, err := app.Firestore(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		return repository.NewFirestoreRepo(fs), func() { _ = fs.Close() }, nil
	}
}

func newVerifier(ctx context.Context, cfg Cfg, app *firebase.App) (auth.Verifier, error) {
	switch cfg.AuthMode {
	case "jwt":
		return auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	case "firebase":
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase auth client: %w", err)
		}
		return auth.NewFirebaseVerifier(client), nil
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.AuthMode)
	}
}

func init() {
	// unrecoverable wiring errors before the service logger exists
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
