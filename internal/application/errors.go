package application

import "errors"

var (
	ErrNoAdminToken    = errors.New("failed to get admin token")
	ErrNoUsersResolved = errors.New("no RM users found")
	ErrRunInProgress   = errors.New("another provisioning run is in progress")
)
