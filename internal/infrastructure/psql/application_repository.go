package psql

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
	"github.com/oksasatya/los-rm-provisioner/internal/domain/repository"
)

const fieldSep = "|"

// ApplicationRepository issues SQL through psql inside a running database container
// (docker exec <container> psql ...). Values are inlined, so assignees must be UUIDs.
type ApplicationRepository struct {
	Runner    Runner
	Docker    string
	Container string
	User      string
	Database  string
}

func NewApplicationRepository(runner Runner, container, user, database string) *ApplicationRepository {
	return &ApplicationRepository{Runner: runner, Docker: "docker", Container: container, User: user, Database: database}
}

func (r *ApplicationRepository) args(sql string) []string {
	return []string{
		"exec", r.Container,
		"psql", "-X", "-q", "-A", "-t",
		"-v", "ON_ERROR_STOP=1",
		"-F", fieldSep,
		"-U", r.User, "-d", r.Database,
		"-c", sql,
	}
}

// query runs sql and returns the non-empty unaligned output lines.
func (r *ApplicationRepository) query(ctx context.Context, sql string) ([]string, error) {
	out, err := r.Runner.Run(ctx, r.Docker, r.args(sql)...)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, l := range strings.Split(string(out), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (r *ApplicationRepository) ResetAssignments(ctx context.Context) (int64, error) {
	lines, err := r.query(ctx, ResetAssignmentsSQL())
	if err != nil {
		return 0, fmt.Errorf("reset assignments: %w", err)
	}
	if len(lines) != 1 {
		return 0, fmt.Errorf("reset assignments: unexpected output %q", lines)
	}
	n, err := strconv.ParseInt(lines[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("reset assignments: %w", err)
	}
	return n, nil
}

func (r *ApplicationRepository) AssignOldestUnassigned(ctx context.Context, assignee string, limit int) ([]string, error) {
	sql, err := AssignOldestUnassignedSQL(assignee, limit)
	if err != nil {
		return nil, err
	}
	lines, err := r.query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("assign applications: %w", err)
	}
	return lines, nil
}

func (r *ApplicationRepository) CountByAssignee(ctx context.Context) ([]entity.AssigneeCount, error) {
	lines, err := r.query(ctx, CountByAssigneeSQL())
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	counts := make([]entity.AssigneeCount, 0, len(lines))
	for _, l := range lines {
		assignedTo, count, ok := strings.Cut(l, fieldSep)
		if !ok {
			return nil, fmt.Errorf("count applications: malformed row %q", l)
		}
		n, err := strconv.ParseInt(count, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("count applications: %w", err)
		}
		counts = append(counts, entity.AssigneeCount{AssignedTo: assignedTo, Count: n})
	}
	return counts, nil
}

// ResetAssignmentsSQL clears every assignment and prints how many rows it touched.
func ResetAssignmentsSQL() string {
	return `WITH cleared AS (UPDATE applications SET assigned_to = NULL RETURNING 1) SELECT COUNT(*) FROM cleared;`
}

// AssignOldestUnassignedSQL renders the batch statement for one assignee.
// The ordering subquery (with row numbers) keeps the printed ids in created_at order.
func AssignOldestUnassignedSQL(assignee string, limit int) (string, error) {
	id, err := uuid.Parse(assignee)
	if err != nil {
		return "", fmt.Errorf("assignee %q is not a uuid: %w", assignee, err)
	}
	if limit < 1 {
		return "", fmt.Errorf("limit must be positive, got %d", limit)
	}
	return fmt.Sprintf(`WITH picked AS (
  SELECT application_id, ROW_NUMBER() OVER (ORDER BY created_at, application_id) AS n
  FROM applications
  WHERE assigned_to IS NULL
  ORDER BY created_at, application_id
  LIMIT %d
), updated AS (
  UPDATE applications a SET assigned_to = '%s'
  FROM picked p
  WHERE a.application_id = p.application_id
  RETURNING a.application_id, p.n
)
SELECT application_id FROM updated ORDER BY n;`, limit, id.String()), nil
}

// CountByAssigneeSQL groups applications by assignee; unassigned rows print an empty first column.
func CountByAssigneeSQL() string {
	return `SELECT COALESCE(assigned_to::text, ''), COUNT(*) FROM applications GROUP BY assigned_to ORDER BY assigned_to NULLS LAST;`
}

var _ repository.ApplicationRepository = (*ApplicationRepository)(nil)
