package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/los-rm-provisioner/config"
	"github.com/oksasatya/los-rm-provisioner/internal/application"
	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
	"github.com/oksasatya/los-rm-provisioner/internal/interface/cli"
)

type stubRunner struct {
	report *entity.Report
	err    error
}

func (s stubRunner) Run(context.Context) (*entity.Report, error) { return s.report, s.err }

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	for _, k := range []string{"DB_DRIVER", "DB_CONTAINER", "KEYCLOAK_URL", "RM_USERNAMES", "APPS_PER_RM", "REPORT_EMAIL_TO", "LOCK_TTL"} {
		t.Setenv(k, "")
	}
	return config.Load()
}

func TestRunExitCodes(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(c *config.Config)
		err      error
		want     int
		built    bool
		contains string
	}{
		{name: "completed", want: exitOK, built: true, contains: "SETUP COMPLETE"},
		{name: "no admin token", err: application.ErrNoAdminToken, want: exitFailed, built: true},
		{name: "no users resolved", err: application.ErrNoUsersResolved, want: exitFailed, built: true},
		{name: "run in progress", err: fmt.Errorf("realm los: %w", application.ErrRunInProgress), want: exitFailed, built: true},
		{name: "unexpected error", err: errors.New("boom"), want: exitFailed, built: true, contains: "boom"},
		{name: "invalid config", mutate: func(c *config.Config) { c.AppsPerRM = 0 }, want: exitConfig, contains: "APPS_PER_RM"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			if tc.mutate != nil {
				tc.mutate(cfg)
			}
			var out bytes.Buffer
			built, closed := false, false
			build := func(context.Context, *config.Config, *cli.Printer) (runner, func()) {
				built = true
				report := &entity.Report{Realm: cfg.KeycloakRealm}
				if tc.err != nil {
					report = nil
				}
				return stubRunner{report: report, err: tc.err}, func() { closed = true }
			}

			code := run(context.Background(), cfg, cli.NewPrinter(&out, true), build)

			assert.Equal(t, tc.want, code)
			assert.Equal(t, tc.built, built)
			assert.Equal(t, tc.built, closed)
			if tc.contains != "" {
				assert.Contains(t, out.String(), tc.contains)
			}
		})
	}
}

func TestRunPrintsRealmOnCompletion(t *testing.T) {
	cfg := validConfig(t)
	var out bytes.Buffer
	build := func(context.Context, *config.Config, *cli.Printer) (runner, func()) {
		return stubRunner{report: &entity.Report{}}, func() {}
	}

	assert.Equal(t, exitOK, run(context.Background(), cfg, cli.NewPrinter(&out, true), build))
	assert.Contains(t, out.String(), fmt.Sprintf("Keycloak realm: %s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailed, exitCode(application.ErrNoAdminToken))
	assert.Equal(t, exitFailed, exitCode(application.ErrNoUsersResolved))
	assert.Equal(t, exitFailed, exitCode(application.ErrRunInProgress))
}
