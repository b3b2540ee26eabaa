package models

import (
	"encoding/json"
	"strings"
	"time"
)

// SourceKind classifies where a performance record came from.
type SourceKind string

const (
	SourceKindPaid    SourceKind = "paid"    // Ad platform exports
	SourceKindOrganic SourceKind = "organic" // Organic post trackers
)

// ClassifySourceKind infers the record kind from an export's column names.
// Paid exports carry a spend column; organic trackers never do.
func ClassifySourceKind(columns []string) SourceKind {
	for _, c := range columns {
		switch strings.ToLower(c) {
		case "spend", "spend_usd":
			return SourceKindPaid
		}
	}
	return SourceKindOrganic
}

// StagedRecord is one ingested performance record waiting to be matched
type StagedRecord struct {
	ID         string          `json:"id" db:"id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	Platform   string          `json:"platform" db:"platform"`
	SourceID   string          `json:"source_id" db:"source_id"`
	SourceKind SourceKind      `json:"source_kind" db:"source_kind"`
	SourceKey  string          `json:"source_key" db:"source_key"`
	Data       json.RawMessage `json:"data" db:"data"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateStagedRecordRequest is the request to stage a record
type CreateStagedRecordRequest struct {
	Platform   string          `json:"platform" validate:"required"`
	SourceID   string          `json:"source_id" validate:"required"`
	SourceKind SourceKind      `json:"source_kind" validate:"required,oneof=paid organic"`
	SourceKey  string          `json:"source_key"`
	Data       json.RawMessage `json:"data" validate:"required"`
}

// UpsertStagedRecordResult reports whether the upsert inserted a new row
type UpsertStagedRecordResult struct {
	Record *StagedRecord
	IsNew  bool
}
