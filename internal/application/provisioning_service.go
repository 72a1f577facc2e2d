package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/los-rm-provisioner/config"
	"github.com/oksasatya/los-rm-provisioner/internal/domain"
	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
	repo "github.com/oksasatya/los-rm-provisioner/internal/domain/repository"
	"github.com/oksasatya/los-rm-provisioner/pkg/helpers"
)

const unassignedLabel = "Unassigned"

// Options are the per-environment knobs of a provisioning run.
type Options struct {
	AdminUser          string
	AdminPassword      string
	Realm              string
	Usernames          []string
	Roles              []string
	Quota              int
	CreateMissingUsers bool
	DryRun             bool
	EmailDomain        string
	SeedPassword       string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AdminUser:          cfg.KeycloakAdminUser,
		AdminPassword:      cfg.KeycloakAdminPassword,
		Realm:              cfg.KeycloakRealm,
		Usernames:          cfg.Usernames,
		Roles:              cfg.Roles,
		Quota:              cfg.AppsPerRM,
		CreateMissingUsers: cfg.CreateMissingUsers,
		DryRun:             cfg.DryRun,
		EmailDomain:        cfg.SeedEmailDomain,
		SeedPassword:       cfg.SeedPassword,
	}
}

// Service provisions RM users in Keycloak and distributes applications among them.
// A run is strictly sequential; nothing is retried.
type Service struct {
	IdP     repo.IdentityProvider
	Apps    repo.ApplicationRepository
	Opts    Options
	Logger  *logrus.Logger
	Console Console
	Sinks   []ReportSink
	Locker  RunLocker

	now   func() time.Time
	newID func() string
}

func NewService(idp repo.IdentityProvider, apps repo.ApplicationRepository, opts Options, logger *logrus.Logger, console Console) *Service {
	return &Service{
		IdP:     idp,
		Apps:    apps,
		Opts:    opts,
		Logger:  logger,
		Console: console,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run executes the full flow: token, roles, users and role mappings, then distribution.
// It returns ErrNoAdminToken or ErrNoUsersResolved for the fatal cases; every other
// failure is recorded in the report and the run continues.
func (s *Service) Run(ctx context.Context) (*entity.Report, error) {
	report, log := s.begin()

	sess, err := s.acquireToken(ctx, report, log)
	if err != nil {
		return report, err
	}

	release, err := s.lock(ctx, log)
	if err != nil {
		return report, err
	}
	defer release()

	s.ensureRoles(ctx, sess.AccessToken, report, log)
	s.resolveUsers(ctx, sess.AccessToken, s.Opts.CreateMissingUsers, report, log)

	bound := report.BoundUsers()
	if len(bound) == 0 {
		s.Console.Fail("No RM users found. Create them first:")
		s.Console.Fail("   Run: seed (go run ./cmd/seed) or set CREATE_MISSING_USERS=true")
		report.FinishedAt = s.now()
		return report, ErrNoUsersResolved
	}
	s.Console.Users(bound)

	s.distribute(ctx, bound, report, log)
	s.summarize(ctx, bound, report, log)

	report.FinishedAt = s.now()
	s.publish(ctx, report, log)
	return report, nil
}

func (s *Service) begin() (*entity.Report, *logrus.Entry) {
	report := entity.NewReport(s.newID(), s.Opts.Realm, s.Opts.DryRun, s.now())
	log := s.Logger.WithFields(logrus.Fields{"run_id": report.RunID, "realm": s.Opts.Realm})
	if s.Opts.DryRun {
		s.Console.Warn("Dry run: no changes will be made")
	}
	return report, log
}

func (s *Service) acquireToken(ctx context.Context, report *entity.Report, log *logrus.Entry) (entity.Session, error) {
	s.Console.Step("Getting Keycloak admin token...")
	sess, err := s.IdP.Login(ctx, s.Opts.AdminUser, s.Opts.AdminPassword)
	if err != nil {
		helpers.LogError(log, "admin login failed", err, nil)
		s.Console.Fail("Failed to get admin token: %v", err)
		report.FinishedAt = s.now()
		return entity.Session{}, fmt.Errorf("%w: %v", ErrNoAdminToken, err)
	}
	if !sess.ExpiresAt.IsZero() {
		exp := sess.ExpiresAt
		report.TokenExpiresAt = &exp
	}
	log.WithFields(logrus.Fields{"subject": sess.Subject, "expires_at": sess.ExpiresAt}).Debug("admin token acquired")
	s.Console.OK("Got token")
	return sess, nil
}

// lock is a no-op without a locker. Locker errors other than contention only warn.
func (s *Service) lock(ctx context.Context, log *logrus.Entry) (func(), error) {
	noop := func() {}
	if s.Locker == nil {
		return noop, nil
	}
	release, err := s.Locker.Acquire(ctx, s.Opts.Realm)
	if errors.Is(err, domain.ErrLocked) {
		s.Console.Fail("Another provisioning run is in progress for realm %s", s.Opts.Realm)
		return nil, fmt.Errorf("%w: %v", ErrRunInProgress, err)
	}
	if err != nil {
		helpers.LogWarn(log, "run lock unavailable, continuing unlocked", err, nil)
		return noop, nil
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			helpers.LogWarn(log, "release run lock", err, nil)
		}
	}, nil
}

// ensureRoles creates every configured role, treating "already exists" as success.
func (s *Service) ensureRoles(ctx context.Context, token string, report *entity.Report, log *logrus.Entry) {
	s.Console.Step("Checking roles...")
	for _, name := range s.Opts.Roles {
		res := entity.RoleResult{Role: name}
		switch err := s.createRole(ctx, token, name); {
		case s.Opts.DryRun:
			res.Outcome = entity.OutcomeSkipped
		case err == nil:
			res.Outcome = entity.OutcomeCreated
			log.WithField("role", name).Info("role created")
		case errors.Is(err, domain.ErrAlreadyExists):
			res.Outcome = entity.OutcomeAlreadyExists
			log.WithField("role", name).Debug("role already exists")
		default:
			res.Outcome = entity.OutcomeFailed
			res.Error = err.Error()
			s.warn(report, log, err, logrus.Fields{"role": name}, "Could not create role %s", name)
		}
		report.Roles = append(report.Roles, res)
	}
	s.Console.OK("Roles ready")
}

func (s *Service) createRole(ctx context.Context, token, name string) error {
	if s.Opts.DryRun {
		return nil
	}
	return s.IdP.CreateRealmRole(ctx, token, entity.Role{Name: name, Description: name})
}

// resolveUsers looks up every configured username in order and attaches the roles
// to each one right after it resolves.
func (s *Service) resolveUsers(ctx context.Context, token string, createMissing bool, report *entity.Report, log *logrus.Entry) {
	s.Console.Step("Getting RM user IDs...")
	for _, username := range s.Opts.Usernames {
		res := entity.Resolution{Username: username}
		id, err := s.IdP.FindUserIDByUsername(ctx, token, username)
		if errors.Is(err, domain.ErrNotFound) && createMissing && !s.Opts.DryRun {
			created := s.createUser(ctx, token, username, report, log)
			if created.Outcome.OK() {
				res.Created = created.Outcome == entity.OutcomeCreated
				id, err = s.IdP.FindUserIDByUsername(ctx, token, username)
			}
		}
		switch {
		case err == nil:
			res.ID = id
			s.Console.OK("%s: %s", username, id)
		case errors.Is(err, domain.ErrNotFound):
			res.Error = "not found"
			s.warn(report, log, nil, logrus.Fields{"username": username}, "%s not found", username)
		default:
			res.Error = err.Error()
			s.warn(report, log, err, logrus.Fields{"username": username}, "%s could not be resolved", username)
		}
		report.Users = append(report.Users, res)

		if res.Bound() {
			s.assignRoles(ctx, token, res, report, log)
		}
	}
}

// assignRoles looks up each role by name and maps it onto the user. A failed lookup
// skips only that role.
func (s *Service) assignRoles(ctx context.Context, token string, user entity.Resolution, report *entity.Report, log *logrus.Entry) {
	for _, name := range s.Opts.Roles {
		res := entity.MappingResult{Username: user.Username, UserID: user.ID, Role: name}
		fields := logrus.Fields{"username": user.Username, "user_id": user.ID, "role": name}

		role, err := s.IdP.GetRealmRole(ctx, token, name)
		if err != nil {
			res.Outcome = entity.OutcomeFailed
			res.Error = "role lookup: " + err.Error()
			s.warn(report, log, err, fields, "%s: role %s not assigned (lookup failed)", user.Username, name)
			report.RoleMappings = append(report.RoleMappings, res)
			continue
		}

		switch {
		case s.Opts.DryRun:
			res.Outcome = entity.OutcomeSkipped
		default:
			if err := s.IdP.AddRealmRoles(ctx, token, user.ID, []entity.Role{role}); err != nil {
				res.Outcome = entity.OutcomeFailed
				res.Error = err.Error()
				s.warn(report, log, err, fields, "%s: role %s not assigned", user.Username, name)
			} else {
				res.Outcome = entity.OutcomeAssigned
				log.WithFields(fields).Debug("role assigned")
			}
		}
		report.RoleMappings = append(report.RoleMappings, res)
	}
}

// distribute clears all assignments, then gives each bound user, in resolution order,
// the quota oldest applications that are still unassigned. Batch failures do not stop
// later batches.
func (s *Service) distribute(ctx context.Context, bound []entity.Resolution, report *entity.Report, log *logrus.Entry) {
	if s.Opts.DryRun {
		s.Console.Warn("Dry run: skipping reset and assignment of %d applications per RM", s.Opts.Quota)
		return
	}
	s.Console.Step("Assigning applications to RMs...")

	reset := &entity.ResetResult{}
	cleared, err := s.Apps.ResetAssignments(ctx)
	if err != nil {
		reset.Outcome = entity.OutcomeFailed
		reset.Error = err.Error()
		s.warn(report, log, err, nil, "Could not clear existing assignments")
	} else {
		reset.Outcome = entity.OutcomeAssigned
		reset.Cleared = cleared
		log.WithField("cleared", cleared).Info("assignments cleared")
	}
	report.Reset = reset

	for i, u := range bound {
		batch := entity.BatchResult{Index: i, Username: u.Username, UserID: u.ID, Quota: s.Opts.Quota}
		fields := logrus.Fields{"username": u.Username, "user_id": u.ID, "batch": i}

		ids, err := s.Apps.AssignOldestUnassigned(ctx, u.ID, s.Opts.Quota)
		switch {
		case err != nil:
			batch.Outcome = entity.OutcomeFailed
			batch.Error = err.Error()
			s.warn(report, log, err, fields, "%s: Assignment may have failed", u.Username)
		case len(ids) < s.Opts.Quota:
			batch.Outcome = entity.OutcomeAssigned
			batch.ApplicationIDs = ids
			s.warn(report, log, nil, fields, "%s: Assigned %d of %d applications (no more unassigned)", u.Username, len(ids), s.Opts.Quota)
		default:
			batch.Outcome = entity.OutcomeAssigned
			batch.ApplicationIDs = ids
			s.Console.OK("%s: Assigned %d applications", u.Username, len(ids))
		}
		report.Batches = append(report.Batches, batch)
	}
}

func (s *Service) summarize(ctx context.Context, bound []entity.Resolution, report *entity.Report, log *logrus.Entry) {
	counts, err := s.Apps.CountByAssignee(ctx)
	if err != nil {
		s.warn(report, log, err, nil, "Could not load assignment summary")
		return
	}
	report.Summary = LabelCounts(counts, bound)
	s.Console.Summary(report.Summary)
}

// LabelCounts maps assignee ids back to usernames. Rows for unknown or empty
// assignees collapse into "Unassigned", which is listed last.
func LabelCounts(counts []entity.AssigneeCount, bound []entity.Resolution) []entity.SummaryRow {
	names := lo.SliceToMap(bound, func(r entity.Resolution) (string, string) {
		return r.ID, r.Username
	})
	byLabel := make(map[string]int64, len(bound)+1)
	for _, c := range counts {
		label, ok := names[c.AssignedTo]
		if !ok || c.AssignedTo == "" {
			label = unassignedLabel
		}
		byLabel[label] += c.Count
	}

	rows := make([]entity.SummaryRow, 0, len(byLabel))
	for _, u := range bound {
		if n, ok := byLabel[u.Username]; ok {
			rows = append(rows, entity.SummaryRow{Label: u.Username, Count: n})
		}
	}
	if n, ok := byLabel[unassignedLabel]; ok {
		rows = append(rows, entity.SummaryRow{Label: unassignedLabel, Count: n})
	}
	return rows
}

func (s *Service) publish(ctx context.Context, report *entity.Report, log *logrus.Entry) {
	for _, sink := range s.Sinks {
		if err := sink.Publish(ctx, report); err != nil {
			helpers.LogWarn(log, "publish report", err, logrus.Fields{"sink": sink.Name()})
			continue
		}
		log.WithField("sink", sink.Name()).Debug("report published")
	}
}

// warn reports a non-fatal problem to the operator, the log and the report.
func (s *Service) warn(report *entity.Report, log *logrus.Entry, err error, fields logrus.Fields, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.Console.Warn("%s", msg)
	helpers.LogWarn(log, msg, err, fields)
	report.Warnings = append(report.Warnings, msg)
}
