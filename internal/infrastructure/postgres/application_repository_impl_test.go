package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database when TEST_POSTGRES_DSN is set. A single
// connection keeps the temporary applications table visible to every query.
func newTestRepository(t *testing.T) *ApplicationRepository {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	repo := NewApplicationRepository(PoolConfig{DSN: dsn, MaxConns: 1, MaxConnLife: time.Hour})
	t.Cleanup(repo.Close)

	ctx := context.Background()
	pool, err := repo.conn(ctx)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
		CREATE TEMP TABLE applications (
			application_id uuid PRIMARY KEY,
			assigned_to    uuid,
			created_at     timestamptz NOT NULL
		)`)
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		_, err := pool.Exec(ctx,
			`INSERT INTO applications (application_id, assigned_to, created_at) VALUES ($1, $2, $3)`,
			uuid.NewString(), uuid.NewString(), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}
	return repo
}

func TestApplicationRepositoryDistribution(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	cleared, err := repo.ResetAssignments(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 25, cleared)

	rm1, rm2 := uuid.NewString(), uuid.NewString()
	first, err := repo.AssignOldestUnassigned(ctx, rm1, 10)
	require.NoError(t, err)
	second, err := repo.AssignOldestUnassigned(ctx, rm2, 10)
	require.NoError(t, err)
	assert.Len(t, first, 10)
	assert.Len(t, second, 10)
	assert.Empty(t, intersect(first, second))

	counts, err := repo.CountByAssignee(ctx)
	require.NoError(t, err)
	got := map[string]int64{}
	for _, c := range counts {
		got[c.AssignedTo] = c.Count
	}
	assert.Equal(t, map[string]int64{rm1: 10, rm2: 10, "": 5}, got)
}

func TestAssignRejectsNonUUIDAssignee(t *testing.T) {
	repo := NewApplicationRepository(PoolConfig{DSN: "postgres://invalid"})
	_, err := repo.AssignOldestUnassigned(context.Background(), "x'; DROP TABLE applications; --", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a uuid")
	assert.Nil(t, repo.pool, fmt.Sprintf("pool must stay closed, got %v", repo.pool))
}

func intersect(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	var out []string
	for _, s := range b {
		if _, ok := seen[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
