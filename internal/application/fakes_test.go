package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/los-rm-provisioner/internal/domain"
	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
)

// fakeIdP is an in-memory realm.
type fakeIdP struct {
	loginErr     error
	users        map[string]string // username -> id
	roles        map[string]string // name -> id
	createRole   map[string]error
	lookupRole   map[string]error
	mapRole      map[string]error // keyed by role name
	createUser   error
	mappings     map[string][]string // user id -> role names
	createdUsers []string
	calls        []string
	nextID       int
}

func newFakeIdP(usernames ...string) *fakeIdP {
	f := &fakeIdP{
		users:      map[string]string{},
		roles:      map[string]string{},
		createRole: map[string]error{},
		lookupRole: map[string]error{},
		mapRole:    map[string]error{},
		mappings:   map[string][]string{},
	}
	for _, u := range usernames {
		f.users[u] = f.id()
	}
	return f
}

func (f *fakeIdP) id() string {
	f.nextID++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", f.nextID)
}

func (f *fakeIdP) Login(_ context.Context, username, password string) (entity.Session, error) {
	f.calls = append(f.calls, "login")
	if f.loginErr != nil {
		return entity.Session{}, f.loginErr
	}
	return entity.Session{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Minute), Subject: username}, nil
}

func (f *fakeIdP) CreateRealmRole(_ context.Context, token string, role entity.Role) error {
	f.calls = append(f.calls, "create-role:"+role.Name)
	if err := f.createRole[role.Name]; err != nil {
		return err
	}
	if _, ok := f.roles[role.Name]; ok {
		return fmt.Errorf("create role: %w", domain.ErrAlreadyExists)
	}
	f.roles[role.Name] = "role-" + role.Name
	return nil
}

func (f *fakeIdP) GetRealmRole(_ context.Context, token, name string) (entity.Role, error) {
	f.calls = append(f.calls, "get-role:"+name)
	if err := f.lookupRole[name]; err != nil {
		return entity.Role{}, err
	}
	id, ok := f.roles[name]
	if !ok {
		return entity.Role{}, fmt.Errorf("role %q: %w", name, domain.ErrNotFound)
	}
	return entity.Role{ID: id, Name: name}, nil
}

func (f *fakeIdP) FindUserIDByUsername(_ context.Context, token, username string) (string, error) {
	f.calls = append(f.calls, "find-user:"+username)
	id, ok := f.users[username]
	if !ok {
		return "", fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	return id, nil
}

func (f *fakeIdP) AddRealmRoles(_ context.Context, token, userID string, roles []entity.Role) error {
	for _, r := range roles {
		f.calls = append(f.calls, "map-role:"+r.Name)
		if err := f.mapRole[r.Name]; err != nil {
			return err
		}
		f.mappings[userID] = append(f.mappings[userID], r.Name)
	}
	return nil
}

func (f *fakeIdP) CreateUser(_ context.Context, token string, u entity.NewUser) error {
	f.calls = append(f.calls, "create-user:"+u.Username)
	if f.createUser != nil {
		return f.createUser
	}
	if _, ok := f.users[u.Username]; ok {
		return fmt.Errorf("create user: %w", domain.ErrAlreadyExists)
	}
	f.users[u.Username] = f.id()
	f.createdUsers = append(f.createdUsers, u.Username+"|"+u.Email+"|"+u.Password)
	return nil
}

// memApps is an in-memory applications table.
type memApps struct {
	rows      []*appRow
	resetErr  error
	assignErr map[string]error // keyed by assignee
	countErr  error
	calls     []string
}

type appRow struct {
	id         string
	assignedTo string
	createdAt  time.Time
}

// newMemApps creates n applications a01..aNN with increasing created_at, all assigned
// to a stale owner so the reset is observable.
func newMemApps(n int) *memApps {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &memApps{assignErr: map[string]error{}}
	// inserted newest first so ordering must come from created_at
	for i := n; i >= 1; i-- {
		m.rows = append(m.rows, &appRow{
			id:         fmt.Sprintf("a%02d", i),
			assignedTo: "stale-owner",
			createdAt:  base.Add(time.Duration(i) * time.Hour),
		})
	}
	return m
}

func (m *memApps) ResetAssignments(context.Context) (int64, error) {
	m.calls = append(m.calls, "reset")
	if m.resetErr != nil {
		return 0, m.resetErr
	}
	for _, r := range m.rows {
		r.assignedTo = ""
	}
	return int64(len(m.rows)), nil
}

func (m *memApps) AssignOldestUnassigned(_ context.Context, assignee string, limit int) ([]string, error) {
	m.calls = append(m.calls, "assign:"+assignee)
	if err := m.assignErr[assignee]; err != nil {
		return nil, err
	}
	free := make([]*appRow, 0, len(m.rows))
	for _, r := range m.rows {
		if r.assignedTo == "" {
			free = append(free, r)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i].createdAt.Before(free[j].createdAt) })
	if len(free) > limit {
		free = free[:limit]
	}
	ids := make([]string, 0, len(free))
	for _, r := range free {
		r.assignedTo = assignee
		ids = append(ids, r.id)
	}
	return ids, nil
}

func (m *memApps) CountByAssignee(context.Context) ([]entity.AssigneeCount, error) {
	m.calls = append(m.calls, "count")
	if m.countErr != nil {
		return nil, m.countErr
	}
	byAssignee := map[string]int64{}
	for _, r := range m.rows {
		byAssignee[r.assignedTo]++
	}
	out := make([]entity.AssigneeCount, 0, len(byAssignee))
	for k, v := range byAssignee {
		out = append(out, entity.AssigneeCount{AssignedTo: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedTo < out[j].AssignedTo })
	return out, nil
}

func (m *memApps) assignedTo(assignee string) []*appRow {
	var out []*appRow
	for _, r := range m.rows {
		if r.assignedTo == assignee {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].createdAt.Before(out[j].createdAt) })
	return out
}

// recConsole records operator lines.
type recConsole struct {
	lines   []string
	users   []entity.Resolution
	summary []entity.SummaryRow
}

func (c *recConsole) Step(format string, args ...any) { c.add("step", format, args...) }
func (c *recConsole) OK(format string, args ...any)   { c.add("ok", format, args...) }
func (c *recConsole) Warn(format string, args ...any) { c.add("warn", format, args...) }
func (c *recConsole) Fail(format string, args ...any) { c.add("fail", format, args...) }
func (c *recConsole) Users(users []entity.Resolution) { c.users = users }
func (c *recConsole) Summary(rows []entity.SummaryRow) {
	c.summary = rows
}

func (c *recConsole) add(kind, format string, args ...any) {
	c.lines = append(c.lines, kind+": "+fmt.Sprintf(format, args...))
}

type fakeSink struct {
	name    string
	err     error
	reports []*entity.Report
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Publish(_ context.Context, r *entity.Report) error {
	s.reports = append(s.reports, r)
	return s.err
}

type fakeLocker struct {
	err      error
	acquired []string
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, realm string) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, realm)
	return func(context.Context) error { l.released++; return nil }, nil
}

var errBoom = errors.New("boom")

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func defaultOptions() Options {
	return Options{
		AdminUser:     "admin",
		AdminPassword: "admin",
		Realm:         "los",
		Usernames:     []string{"rm1", "rm2", "rm3"},
		Roles:         []string{"rm", "relationship_manager"},
		Quota:         10,
		EmailDomain:   "los.test",
	}
}

func newTestService(idp *fakeIdP, apps *memApps, opts Options) (*Service, *recConsole) {
	console := &recConsole{}
	svc := NewService(idp, apps, opts, testLogger(), console)
	svc.newID = func() string { return "run-1" }
	return svc, console
}
