package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/Durga812/new-web-app-sub001/internal/config"
	"github.com/Durga812/new-web-app-sub001/internal/infrastructure/learnapi"
	"github.com/Durga812/new-web-app-sub001/internal/infrastructure/mailer"
	"github.com/Durga812/new-web-app-sub001/internal/infrastructure/repo"
	"github.com/Durga812/new-web-app-sub001/internal/infrastructure/stripepay"
	"github.com/Durga812/new-web-app-sub001/internal/server"
	"github.com/Durga812/new-web-app-sub001/internal/usecase"
)

func main() {
	if err := godotenv.Load(".env", ".env.local"); err != nil {
		log.Debug("no .env file loaded")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	port := flag.Int("port", cfg.Port, "")
	env := flag.String("env", cfg.Env, "")
	logJSON := flag.Bool("log-json", cfg.LogJSON, "")
	flag.Parse()
	cfg.Port = *port
	cfg.Env = *env
	cfg.LogJSON = *logJSON

	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
	if cfg.Env == "dev" {
		log.SetLevel(log.DebugLevel)
	}
	log.WithField("env", cfg.Env).Info("starting storefront")

	var store interface {
		usecase.EnrollmentRepo
		usecase.OrderRepo
		usecase.ProductRepo
	}
	if cfg.DatabaseURL != "" {
		runMigrations(cfg)
		pg, err := repo.NewPostgresRepo(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("database connection failed")
		}
		store = pg
	} else {
		log.Warn("DATABASE_URL not set; using in-memory store")
		store = repo.NewMemoryRepo()
	}

	learn := &learnapi.Client{BaseURL: cfg.LearnAPIBaseURL, Token: cfg.LearnAPIToken}

	payments, err := stripepay.New(stripepay.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
	})
	if err != nil {
		log.WithError(err).Fatal("stripe client init failed")
	}

	mail := mailer.New(mailer.Config{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.MailFrom,
	})

	srv := server.New(&server.Server{
		Auth: &usecase.AuthService{JWTSecret: cfg.JWTSecret},
		Eligibility: &usecase.EligibilityService{
			Enrollments: store,
			Orders:      store,
			Products:    store,
			Progress:    learn,
			Policy:      cfg.Refund,
		},
		Refunds: &usecase.RefundService{
			Enrollments: store,
			Orders:      store,
			Payments:    payments,
			Progress:    learn,
			Mail:        mail,
			Policy:      cfg.Refund,
		},
		Checkout: &usecase.CheckoutService{
			Products:    store,
			Orders:      store,
			Enrollments: store,
			Payments:    payments,
			Learn:       learn,
			Mail:        mail,
		},
		Enrollments: store,
		Products:    store,
		Webhooks:    payments,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.WithField("addr", addr).Info("listening")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func runMigrations(cfg config.Config) {
	if cfg.MigrationsDir == "" {
		return
	}
	url := cfg.DatabaseURL
	if strings.Contains(url, "?") {
		url += "&x-migrations-table=storefront_schema_migrations"
	} else {
		url += "?x-migrations-table=storefront_schema_migrations"
	}
	m, err := migrate.New("file://"+cfg.MigrationsDir, url)
	if err != nil {
		log.WithError(err).Fatal("could not create migration instance")
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.WithError(err).Fatal("could not apply migrations")
	}
	log.Info("database migrations applied")
}
