package entity

import "time"

// Application is a work item row owned by the loan-origination service.
// AssignedTo is nil while the application is unassigned.
type Application struct {
	ApplicationID string
	AssignedTo    *string
	CreatedAt     time.Time
}

// AssigneeCount is one row of the per-assignee summary. Empty AssignedTo means unassigned.
type AssigneeCount struct {
	AssignedTo string `json:"assigned_to,omitempty"`
	Count      int64  `json:"count"`
}
