package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
)

func TestSeedCreatesUsersAndRoles(t *testing.T) {
	idp := newFakeIdP("rm1")
	apps := newMemApps(5)
	sink := &fakeSink{name: "test"}
	svc, console := newTestService(idp, apps, defaultOptions())
	svc.Sinks = []ReportSink{sink}

	report, err := svc.Seed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []entity.UserResult{
		{Username: "rm1", Outcome: entity.OutcomeAlreadyExists},
		{Username: "rm2", Outcome: entity.OutcomeCreated},
		{Username: "rm3", Outcome: entity.OutcomeCreated},
	}, report.SeededUsers)
	assert.Equal(t, []string{"rm2|rm2@los.test|rm2", "rm3|rm3@los.test|rm3"}, idp.createdUsers)
	assert.Len(t, report.BoundUsers(), 3)
	for _, id := range idp.users {
		assert.ElementsMatch(t, []string{"rm", "relationship_manager"}, idp.mappings[id])
	}
	assert.Empty(t, apps.calls)
	assert.Len(t, console.users, 3)
	assert.Len(t, sink.reports, 1)
}

func TestSeedUsesConfiguredPassword(t *testing.T) {
	idp := newFakeIdP()
	opts := defaultOptions()
	opts.Usernames = []string{"rm1"}
	opts.SeedPassword = "s3cret"
	svc, _ := newTestService(idp, newMemApps(0), opts)

	_, err := svc.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"rm1|rm1@los.test|s3cret"}, idp.createdUsers)
}

func TestSeedFailsWhenNoUserExists(t *testing.T) {
	idp := newFakeIdP()
	idp.createUser = errBoom
	svc, _ := newTestService(idp, newMemApps(0), defaultOptions())

	report, err := svc.Seed(context.Background())
	require.ErrorIs(t, err, ErrNoUsersResolved)
	for _, u := range report.SeededUsers {
		assert.Equal(t, entity.OutcomeFailed, u.Outcome)
		assert.Equal(t, "boom", u.Error)
	}
}

func TestSeedTokenFailure(t *testing.T) {
	idp := newFakeIdP()
	idp.loginErr = errBoom
	svc, _ := newTestService(idp, newMemApps(0), defaultOptions())

	_, err := svc.Seed(context.Background())
	require.ErrorIs(t, err, ErrNoAdminToken)
	assert.Equal(t, []string{"login"}, idp.calls)
}

func TestSeedDryRun(t *testing.T) {
	idp := newFakeIdP("rm1")
	opts := defaultOptions()
	opts.DryRun = true
	svc, _ := newTestService(idp, newMemApps(0), opts)

	report, err := svc.Seed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, idp.createdUsers)
	for _, u := range report.SeededUsers {
		assert.Equal(t, entity.OutcomeSkipped, u.Outcome)
	}
	assert.Len(t, report.BoundUsers(), 1)
}
