package models

import (
	"encoding/json"
	"time"
)

// MatchRunStatus tracks a run through its lifecycle
type MatchRunStatus string

const (
	MatchRunStatusPending   MatchRunStatus = "pending"
	MatchRunStatusRunning   MatchRunStatus = "running"
	MatchRunStatusCompleted MatchRunStatus = "completed"
	MatchRunStatusFailed    MatchRunStatus = "failed"
)

// MatchRun records one execution of the match pipeline for a tenant
type MatchRun struct {
	ID          string          `json:"id" db:"id"`
	TenantID    string          `json:"tenant_id" db:"tenant_id"`
	Namespace   string          `json:"namespace" db:"namespace"`
	Status      MatchRunStatus  `json:"status" db:"status"`
	Parameters  json.RawMessage `json:"parameters" db:"parameters"`
	Diagnostics json.RawMessage `json:"diagnostics,omitempty" db:"diagnostics"`
	Error       *string         `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// CreateMatchRunRequest is the request to start a match run
type CreateMatchRunRequest struct {
	Namespace  string          `json:"namespace"`
	Parameters json.RawMessage `json:"parameters" validate:"required"`
}
