package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/los-rm-provisioner/config"
	"github.com/oksasatya/los-rm-provisioner/internal/application"
	"github.com/oksasatya/los-rm-provisioner/internal/container"
	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
	"github.com/oksasatya/los-rm-provisioner/internal/interface/cli"
	"github.com/oksasatya/los-rm-provisioner/pkg/helpers"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

type runner interface {
	Run(ctx context.Context) (*entity.Report, error)
}

// buildFunc wires a runner for a validated config. The returned func releases its backends.
type buildFunc func(ctx context.Context, cfg *config.Config, printer *cli.Printer) (runner, func())

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	printer := cli.NewPrinter(os.Stdout, cfg.NoColor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, printer, buildService)
	stop()
	os.Exit(code)
}

func buildService(ctx context.Context, cfg *config.Config, printer *cli.Printer) (runner, func()) {
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, os.Stderr)
	c := container.New(ctx, cfg, logger)
	return c.Service(printer), c.Close
}

func run(ctx context.Context, cfg *config.Config, printer *cli.Printer, build buildFunc) int {
	if err := cfg.Validate(); err != nil {
		printer.Fail("%v", err)
		return exitConfig
	}

	svc, closeFn := build(ctx, cfg, printer)
	defer closeFn()

	report, err := svc.Run(ctx)
	if code := exitCode(err); code != exitOK {
		if !isReported(err) {
			printer.Fail("%v", err)
		}
		return code
	}

	printer.Complete(report)
	printer.Step("Keycloak realm: %s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm)
	return exitOK
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	return exitFailed
}

// isReported holds for run-level failures the service already printed.
func isReported(err error) bool {
	return errors.Is(err, application.ErrNoAdminToken) ||
		errors.Is(err, application.ErrNoUsersResolved) ||
		errors.Is(err, application.ErrRunInProgress)
}
