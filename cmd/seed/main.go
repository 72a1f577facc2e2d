package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/los-rm-provisioner/config"
	"github.com/oksasatya/los-rm-provisioner/internal/container"
	"github.com/oksasatya/los-rm-provisioner/internal/interface/cli"
	"github.com/oksasatya/los-rm-provisioner/pkg/helpers"
)

// seed creates the RM users in Keycloak with their roles. Applications are not touched.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	printer := cli.NewPrinter(os.Stdout, cfg.NoColor)
	if err := cfg.Validate(); err != nil {
		printer.Fail("%v", err)
		os.Exit(2)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	c := container.New(ctx, cfg, logger)

	report, err := c.Service(printer).Seed(ctx)
	c.Close()
	stop()
	if err != nil {
		os.Exit(1)
	}

	printer.Banner("✅ USERS READY")
	for _, u := range report.SeededUsers {
		if u.Outcome.OK() {
			printer.OK("%s (%s)", u.Username, u.Outcome)
			continue
		}
		printer.Warn("%s (%s)", u.Username, u.Outcome)
	}
	printer.Step("Next: go run ./cmd/assign_rms")
}
