package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Nerzal/gocloak/v13"
	jsoniter "github.com/json-iterator/go"

	"github.com/oksasatya/los-rm-provisioner/internal/domain"
	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
	"github.com/oksasatya/los-rm-provisioner/internal/domain/repository"
	"github.com/oksasatya/los-rm-provisioner/pkg/helpers"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrInvalidTokenResponse = errors.New("token response has no access_token")

// Client talks to the Keycloak admin REST API of a single realm through gocloak.
type Client struct {
	BaseURL    string
	Realm      string
	AdminRealm string
	ClientID   string

	gc *gocloak.GoCloak
}

func NewClient(baseURL, realm, adminRealm, clientID string, timeout time.Duration) *Client {
	base := strings.TrimRight(baseURL, "/")
	gc := gocloak.NewClient(base)
	rc := gc.RestyClient()
	rc.SetTimeout(timeout)
	rc.JSONMarshal = json.Marshal
	rc.JSONUnmarshal = json.Unmarshal
	return &Client{
		BaseURL:    base,
		Realm:      realm,
		AdminRealm: adminRealm,
		ClientID:   clientID,
		gc:         gc,
	}
}

// Login performs a resource-owner password grant against the admin realm.
// A response without an access token is an error regardless of status.
func (c *Client) Login(ctx context.Context, username, password string) (entity.Session, error) {
	tok, err := c.gc.GetToken(ctx, c.AdminRealm, gocloak.TokenOptions{
		ClientID:  gocloak.StringP(c.ClientID),
		GrantType: gocloak.StringP("password"),
		Username:  gocloak.StringP(username),
		Password:  gocloak.StringP(password),
	})
	if err != nil {
		return entity.Session{}, wrapError(http.MethodPost, "/realms/"+c.AdminRealm+"/protocol/openid-connect/token", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return entity.Session{}, ErrInvalidTokenResponse
	}

	sess := entity.Session{AccessToken: tok.AccessToken}
	if tok.ExpiresIn > 0 {
		sess.ExpiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	// Claims are informational only; opaque tokens are accepted as-is.
	if claims, err := helpers.InspectToken(tok.AccessToken); err == nil {
		sess.Subject = claims.PreferredUsername
		if claims.ExpiresAt != nil {
			sess.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	return sess, nil
}

// CreateRealmRole creates a realm role. Keycloak answers 409 when it exists.
func (c *Client) CreateRealmRole(ctx context.Context, token string, role entity.Role) error {
	if role.Description == "" {
		role.Description = role.Name
	}
	_, err := c.gc.CreateRealmRole(ctx, token, c.Realm, gocloak.Role{
		Name:        gocloak.StringP(role.Name),
		Description: gocloak.StringP(role.Description),
	})
	return wrapError(http.MethodPost, c.adminPath("roles"), err)
}

func (c *Client) GetRealmRole(ctx context.Context, token, name string) (entity.Role, error) {
	role, err := c.gc.GetRealmRole(ctx, token, c.Realm, name)
	if err != nil {
		return entity.Role{}, fmt.Errorf("get role %q: %w", name, wrapError(http.MethodGet, c.adminPath("roles", name), err))
	}
	if role == nil || gocloak.PString(role.ID) == "" {
		return entity.Role{}, fmt.Errorf("role %q has no id: %w", name, domain.ErrNotFound)
	}
	return entity.Role{ID: *role.ID, Name: gocloak.PString(role.Name), Description: gocloak.PString(role.Description)}, nil
}

// FindUserIDByUsername returns the id of the first user matching username exactly.
func (c *Client) FindUserIDByUsername(ctx context.Context, token, username string) (string, error) {
	users, err := c.gc.GetUsers(ctx, token, c.Realm, gocloak.GetUsersParams{
		Username: gocloak.StringP(username),
		Exact:    gocloak.BoolP(true),
	})
	if err != nil {
		return "", fmt.Errorf("search user %q: %w", username, wrapError(http.MethodGet, c.adminPath("users"), err))
	}
	if len(users) == 0 || users[0] == nil || gocloak.PString(users[0].ID) == "" {
		return "", fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	return *users[0].ID, nil
}

// AddRealmRoles maps roles onto a user. Only id and name are sent.
func (c *Client) AddRealmRoles(ctx context.Context, token, userID string, roles []entity.Role) error {
	payload := make([]gocloak.Role, 0, len(roles))
	for _, r := range roles {
		payload = append(payload, gocloak.Role{ID: gocloak.StringP(r.ID), Name: gocloak.StringP(r.Name)})
	}
	err := c.gc.AddRealmRoleToUser(ctx, token, c.Realm, userID, payload)
	return wrapError(http.MethodPost, c.adminPath("users", userID, "role-mappings", "realm"), err)
}

// CreateUser creates an enabled user with a permanent password when one is given.
func (c *Client) CreateUser(ctx context.Context, token string, u entity.NewUser) error {
	user := gocloak.User{
		Username: gocloak.StringP(u.Username),
		Enabled:  gocloak.BoolP(true),
	}
	if u.Email != "" {
		user.Email = gocloak.StringP(u.Email)
	}
	if u.FirstName != "" {
		user.FirstName = gocloak.StringP(u.FirstName)
	}
	if u.LastName != "" {
		user.LastName = gocloak.StringP(u.LastName)
	}
	if u.Password != "" {
		user.Credentials = &[]gocloak.CredentialRepresentation{{
			Type:      gocloak.StringP("password"),
			Value:     gocloak.StringP(u.Password),
			Temporary: gocloak.BoolP(false),
		}}
	}
	_, err := c.gc.CreateUser(ctx, token, c.Realm, user)
	return wrapError(http.MethodPost, c.adminPath("users"), err)
}

// adminPath is the request path used in error messages.
func (c *Client) adminPath(segments ...string) string {
	return "/admin/realms/" + c.Realm + "/" + strings.Join(segments, "/")
}

var _ repository.IdentityProvider = (*Client)(nil)
