package entity

// Role represents a Keycloak realm role.
// Many-to-many with users via realm role mappings.
type Role struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
