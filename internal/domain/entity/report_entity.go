package entity

import "time"

// Outcome classifies a single provisioning call.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "already_exists"
	OutcomeAssigned      Outcome = "assigned"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeFailed        Outcome = "failed"
)

// OK reports whether the outcome leaves the target in the desired state.
func (o Outcome) OK() bool {
	return o == OutcomeCreated || o == OutcomeAlreadyExists || o == OutcomeAssigned
}

type RoleResult struct {
	Role    string  `json:"role"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

type UserResult struct {
	Username string  `json:"username"`
	Outcome  Outcome `json:"outcome"`
	Error    string  `json:"error,omitempty"`
}

type MappingResult struct {
	Username string  `json:"username"`
	UserID   string  `json:"user_id"`
	Role     string  `json:"role"`
	Outcome  Outcome `json:"outcome"`
	Error    string  `json:"error,omitempty"`
}

type ResetResult struct {
	Outcome Outcome `json:"outcome"`
	Cleared int64   `json:"cleared"`
	Error   string  `json:"error,omitempty"`
}

// BatchResult is one user's share of the distribution.
type BatchResult struct {
	Index          int      `json:"index"`
	Username       string   `json:"username"`
	UserID         string   `json:"user_id"`
	Quota          int      `json:"quota"`
	ApplicationIDs []string `json:"application_ids,omitempty"`
	Outcome        Outcome  `json:"outcome"`
	Error          string   `json:"error,omitempty"`
}

func (b BatchResult) Assigned() int { return len(b.ApplicationIDs) }

// SummaryRow is a labelled assignee count, e.g. "rm1" or "Unassigned".
type SummaryRow struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Report captures everything one run did, for operator output and sinks.
type Report struct {
	RunID          string          `json:"run_id"`
	Realm          string          `json:"realm"`
	DryRun         bool            `json:"dry_run"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	TokenExpiresAt *time.Time      `json:"token_expires_at,omitempty"`
	Roles          []RoleResult    `json:"roles,omitempty"`
	SeededUsers    []UserResult    `json:"seeded_users,omitempty"`
	Users          []Resolution    `json:"users,omitempty"`
	RoleMappings   []MappingResult `json:"role_mappings,omitempty"`
	Reset          *ResetResult    `json:"reset,omitempty"`
	Batches        []BatchResult   `json:"batches,omitempty"`
	Summary        []SummaryRow    `json:"summary,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
}

func NewReport(runID, realm string, dryRun bool, startedAt time.Time) *Report {
	return &Report{RunID: runID, Realm: realm, DryRun: dryRun, StartedAt: startedAt}
}

// BoundUsers returns the resolved users in resolution order.
func (r *Report) BoundUsers() []Resolution {
	out := make([]Resolution, 0, len(r.Users))
	for _, u := range r.Users {
		if u.Bound() {
			out = append(out, u)
		}
	}
	return out
}

// TotalAssigned sums the applications handed out across all batches.
func (r *Report) TotalAssigned() int {
	n := 0
	for _, b := range r.Batches {
		n += b.Assigned()
	}
	return n
}
