package application

import (
	"context"

	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
)

// Console receives operator-facing progress lines.
type Console interface {
	Step(format string, args ...any)
	OK(format string, args ...any)
	Warn(format string, args ...any)
	Fail(format string, args ...any)
	Users(users []entity.Resolution)
	Summary(rows []entity.SummaryRow)
}

// ReportSink receives the finished report. Sinks are best-effort.
type ReportSink interface {
	Name() string
	Publish(ctx context.Context, report *entity.Report) error
}

// RunLocker guards a realm against concurrent runs. Acquire returns domain.ErrLocked
// when another holder exists.
type RunLocker interface {
	Acquire(ctx context.Context, realm string) (release func(context.Context) error, err error)
}
