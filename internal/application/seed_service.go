package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/los-rm-provisioner/internal/domain"
	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
)

// Seed creates the configured RM users (password defaults to the username), then
// resolves them and attaches the roles like Run does. Applications are not touched.
func (s *Service) Seed(ctx context.Context) (*entity.Report, error) {
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

	s.Console.Step("Creating users...")
	for _, username := range s.Opts.Usernames {
		if s.Opts.DryRun {
			report.SeededUsers = append(report.SeededUsers, entity.UserResult{Username: username, Outcome: entity.OutcomeSkipped})
			continue
		}
		s.createUser(ctx, sess.AccessToken, username, report, log)
	}

	s.resolveUsers(ctx, sess.AccessToken, false, report, log)
	bound := report.BoundUsers()
	report.FinishedAt = s.now()
	if len(bound) == 0 {
		s.Console.Fail("No RM users could be created or found")
		return report, ErrNoUsersResolved
	}
	s.Console.Users(bound)

	s.publish(ctx, report, log)
	return report, nil
}

// createUser seeds one realm user and records the outcome. 409 counts as already existing.
func (s *Service) createUser(ctx context.Context, token, username string, report *entity.Report, log *logrus.Entry) entity.UserResult {
	password := s.Opts.SeedPassword
	if password == "" {
		password = username
	}
	u := entity.NewUser{
		Username:  username,
		Email:     username + "@" + s.Opts.EmailDomain,
		FirstName: "Relationship",
		LastName:  "Manager",
		Password:  password,
	}

	res := entity.UserResult{Username: username}
	switch err := s.IdP.CreateUser(ctx, token, u); {
	case err == nil:
		res.Outcome = entity.OutcomeCreated
		s.Console.OK("%s: user created", username)
		log.WithField("username", username).Info("user created")
	case errors.Is(err, domain.ErrAlreadyExists):
		res.Outcome = entity.OutcomeAlreadyExists
		s.Console.OK("%s: user already exists", username)
	default:
		res.Outcome = entity.OutcomeFailed
		res.Error = err.Error()
		s.warn(report, log, err, logrus.Fields{"username": username}, "%s: user not created", username)
	}
	report.SeededUsers = append(report.SeededUsers, res)
	return res
}
