package postgres

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
	"github.com/oksasatya/los-rm-provisioner/internal/domain/repository"
)

// ApplicationRepository talks to Postgres directly through pgx.
// The pool is opened on first use so runs that fail before distribution never connect.
type ApplicationRepository struct {
	cfg PoolConfig

	mu   sync.Mutex
	pool *pgxpool.Pool
}

func NewApplicationRepository(cfg PoolConfig) *ApplicationRepository {
	return &ApplicationRepository{cfg: cfg}
}

func (r *ApplicationRepository) conn(ctx context.Context) (*pgxpool.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool != nil {
		return r.pool, nil
	}
	pool, err := NewPool(ctx, r.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	r.pool = pool
	return pool, nil
}

func (r *ApplicationRepository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
}

func (r *ApplicationRepository) ResetAssignments(ctx context.Context) (int64, error) {
	pool, err := r.conn(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := pool.Exec(ctx, resetAssignmentsSQL)
	if err != nil {
		return 0, fmt.Errorf("reset assignments: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ApplicationRepository) AssignOldestUnassigned(ctx context.Context, assignee string, limit int) ([]string, error) {
	if _, err := uuid.Parse(assignee); err != nil {
		return nil, fmt.Errorf("assignee %q is not a uuid: %w", assignee, err)
	}
	pool, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, assignOldestUnassignedSQL, assignee, limit)
	if err != nil {
		return nil, fmt.Errorf("assign applications: %w", err)
	}
	got, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Application, error) {
		a := entity.Application{AssignedTo: &assignee}
		err := row.Scan(&a.ApplicationID, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("assign applications: %w", err)
	}
	// RETURNING order is unspecified.
	sort.SliceStable(got, func(i, j int) bool {
		if got[i].CreatedAt.Equal(got[j].CreatedAt) {
			return got[i].ApplicationID < got[j].ApplicationID
		}
		return got[i].CreatedAt.Before(got[j].CreatedAt)
	})
	ids := make([]string, 0, len(got))
	for _, a := range got {
		ids = append(ids, a.ApplicationID)
	}
	return ids, nil
}

func (r *ApplicationRepository) CountByAssignee(ctx context.Context) ([]entity.AssigneeCount, error) {
	pool, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx, countByAssigneeSQL)
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.AssigneeCount, error) {
		var (
			assignedTo *string
			c          entity.AssigneeCount
		)
		if err := row.Scan(&assignedTo, &c.Count); err != nil {
			return c, err
		}
		if assignedTo != nil {
			c.AssignedTo = *assignedTo
		}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	return counts, nil
}

var _ repository.ApplicationRepository = (*ApplicationRepository)(nil)
