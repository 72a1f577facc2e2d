package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/los-rm-provisioner/internal/domain"
	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
	"github.com/oksasatya/los-rm-provisioner/pkg/helpers"
)

func LockKey(realm string) string       { return "provisioning:lock:" + realm }
func LastReportKey(realm string) string { return "provisioning:last_report:" + realm }

// RedisStore holds the per-realm run lock and keeps the latest report of each realm
// under LastReportKey for operators to inspect.
type RedisStore struct {
	Client    *redis.Client
	LockTTL   time.Duration
	ReportTTL time.Duration
}

func NewRedisStore(client *redis.Client, lockTTL, reportTTL time.Duration) *RedisStore {
	return &RedisStore{Client: client, LockTTL: lockTTL, ReportTTL: reportTTL}
}

func (s *RedisStore) Name() string { return "redis" }

// Acquire takes the realm lock. A held lock is reported as domain.ErrLocked.
func (s *RedisStore) Acquire(ctx context.Context, realm string) (func(context.Context) error, error) {
	release, err := helpers.AcquireLock(ctx, s.Client, LockKey(realm), s.LockTTL)
	if errors.Is(err, helpers.ErrLockHeld) {
		return nil, fmt.Errorf("realm %s: %w", realm, domain.ErrLocked)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return release, nil
}

func (s *RedisStore) Publish(ctx context.Context, report *entity.Report) error {
	return helpers.RedisSetJSON(ctx, s.Client, LastReportKey(report.Realm), report, s.ReportTTL)
}
