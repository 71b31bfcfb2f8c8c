package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkrupp/fintrack/internal/infra/config"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	"github.com/mkrupp/fintrack/internal/infra/transport/http"
	"github.com/mkrupp/fintrack/internal/repo/session"
	"github.com/mkrupp/fintrack/internal/repo/user"
	"github.com/mkrupp/fintrack/internal/svc/authsvc"
)

const (
	appName = "fintrack"
	svcName = "authsvc"
)

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig            `envPrefix:"LOG_"`
	Auth    authsvc.AuthConfig              `envPrefix:"AUTH_"`
	HTTP    authsvc.HTTPTransportConfig     `envPrefix:"HTTP_"`
	User    user.SQLiteUserRepositoryConfig `envPrefix:"USER_"`
	Session session.Config                  `envPrefix:"SESSION_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	if err := logging.Configure(ctx, cfg.Log, loggerName); err != nil {
		panic(err)
	}

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	defer func() {
		log := logging.GetLogger("cmd.authsvc")

		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
			panic(err)
		}

		log.InfoContext(ctx, "shutdown")
	}()

	sessionRepoFactory, err := session.RepositoryFactoryFromConfig(cfg.Session)
	if err != nil {
		return fmt.Errorf("session repository: %w", err)
	}

	authSvc, err := authsvc.NewAuthService(
		ctx,
		user.SQLiteUserRepositoryFactory(cfg.User),
		sessionRepoFactory,
		authsvc.NewLogMailer(),
		cfg.Auth,
	)
	if err != nil {
		return fmt.Errorf("new auth service: %w", err)
	}

	defer func() {
		if closeErr := authSvc.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close auth service: %w", closeErr)
		}
	}()

	httpTransport := authsvc.NewHTTPTransport(authSvc, cfg.HTTP)

	if err := http.ListenAndServe(ctx, httpTransport, cfg.HTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
