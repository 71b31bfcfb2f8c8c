package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mkrupp/fintrack/internal/infra/config"
	"github.com/mkrupp/fintrack/internal/infra/logging"
	"github.com/mkrupp/fintrack/internal/infra/transport/http"
	"github.com/mkrupp/fintrack/internal/repo/blob"
	"github.com/mkrupp/fintrack/internal/repo/ledger"
	"github.com/mkrupp/fintrack/internal/svc/authsvc/authclient"
	"github.com/mkrupp/fintrack/internal/svc/avatarsvc"
	"github.com/mkrupp/fintrack/internal/svc/financesvc"
)

const (
	appName = "fintrack"
	svcName = "financesvc"
)

type Config struct {
	config.EnvConfig

	Log        logging.LoggerConfig                `envPrefix:"LOG_"`
	Finance    financesvc.FinanceConfig            `envPrefix:"FINANCE_"`
	HTTP       financesvc.HTTPTransportConfig      `envPrefix:"HTTP_"`
	Avatar     avatarsvc.AvatarConfig              `envPrefix:"AVATAR_"`
	AuthClient authclient.HTTPClientConfig         `envPrefix:"AUTH_CLIENT_"`
	Ledger     ledger.SQLiteLedgerRepositoryConfig `envPrefix:"LEDGER_"`
	Blob       blob.FileSystemBlobRepositoryConfig `envPrefix:"BLOB_"`
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
		log := logging.GetLogger("cmd.financesvc")

		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)
			panic(err)
		}

		log.InfoContext(ctx, "shutdown")
	}()

	avatarSvc, err := avatarsvc.NewBlobAvatarService(
		ctx,
		blob.FileSystemBlobRepositoryFactory(cfg.Blob),
		cfg.Avatar,
	)
	if err != nil {
		return fmt.Errorf("new avatar service: %w", err)
	}

	financeSvc, err := financesvc.NewFinanceService(
		ctx,
		ledger.SQLiteLedgerRepositoryFactory(cfg.Ledger),
		avatarSvc,
		cfg.Finance,
	)
	if err != nil {
		return fmt.Errorf("new finance service: %w", err)
	}

	defer func() {
		if closeErr := financeSvc.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close finance service: %w", closeErr)
		}
	}()

	authClient := authclient.NewHTTPClient(cfg.AuthClient, nil)

	httpTransport := financesvc.NewHTTPTransport(financeSvc, authClient, cfg.HTTP)

	if err := http.ListenAndServe(ctx, httpTransport, cfg.HTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
