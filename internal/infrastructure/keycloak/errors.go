package keycloak

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Nerzal/gocloak/v13"

	"github.com/oksasatya/los-rm-provisioner/internal/domain"
)

// APIError is a non-2xx answer from Keycloak.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("keycloak %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("keycloak %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is maps 404 and 409 onto the domain sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case domain.ErrAlreadyExists:
		return e.StatusCode == http.StatusConflict
	}
	return false
}

// wrapError turns a gocloak HTTP failure into an APIError. Transport and decode
// failures carry no status and are wrapped as they are.
func wrapError(method, path string, err error) error {
	if err == nil {
		return nil
	}
	if code, msg, ok := statusOf(err); ok {
		return &APIError{Method: method, Path: path, StatusCode: code, Message: trimStatus(code, msg)}
	}
	return fmt.Errorf("keycloak %s %s: %w", method, path, err)
}

func statusOf(err error) (int, string, bool) {
	var ptr *gocloak.APIError
	if errors.As(err, &ptr) && ptr.Code > 0 {
		return ptr.Code, ptr.Message, true
	}
	return 0, "", false
}

// trimStatus drops the "409 Conflict: " prefix gocloak puts in front of the body message.
func trimStatus(code int, msg string) string {
	msg = strings.TrimPrefix(msg, fmt.Sprintf("%d %s", code, http.StatusText(code)))
	msg = strings.TrimPrefix(msg, ":")
	return strings.TrimSpace(msg)
}
