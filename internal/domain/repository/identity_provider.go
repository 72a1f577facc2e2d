package repository

import (
	"context"

	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
)

// IdentityProvider defines the realm administration calls used by provisioning.
// Implementations return domain.ErrNotFound and domain.ErrAlreadyExists where applicable.
type IdentityProvider interface {
	Login(ctx context.Context, username, password string) (entity.Session, error)
	CreateRealmRole(ctx context.Context, token string, role entity.Role) error
	GetRealmRole(ctx context.Context, token, name string) (entity.Role, error)
	FindUserIDByUsername(ctx context.Context, token, username string) (string, error)
	AddRealmRoles(ctx context.Context, token, userID string, roles []entity.Role) error
	CreateUser(ctx context.Context, token string, u entity.NewUser) error
}
