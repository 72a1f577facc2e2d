package repository

import (
	"context"

	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
)

// ApplicationRepository mutates assignment state of the applications table.
type ApplicationRepository interface {
	// ResetAssignments clears assigned_to on every application.
	ResetAssignments(ctx context.Context) (int64, error)
	// AssignOldestUnassigned hands the limit oldest unassigned applications to assignee
	// and returns their ids in created_at order.
	AssignOldestUnassigned(ctx context.Context, assignee string, limit int) ([]string, error)
	// CountByAssignee groups all applications by assigned_to.
	CountByAssignee(ctx context.Context) ([]entity.AssigneeCount, error)
}
