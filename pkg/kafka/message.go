package kafka

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordMessage is the envelope upstream exporters publish for one
// performance record.
type RecordMessage struct {
	TenantID   string         `json:"tenant_id"`
	Platform   string         `json:"platform"`
	SourceID   string         `json:"source_id"`
	SourceKind string         `json:"source_kind,omitempty"`
	SourceKey  string         `json:"source_key,omitempty"`
	Data       map[string]any `json:"data"`
}

// IncomingMessage wraps a raw Kafka message plus its parsed payload.
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	Record *RecordMessage
}

// ParseRecord parses the message value as a RecordMessage.
func (m *IncomingMessage) ParseRecord() error {
	var rec RecordMessage
	if err := json.Unmarshal(m.Value, &rec); err != nil {
		return fmt.Errorf("failed to parse record message: %w", err)
	}
	m.Record = &rec
	return nil
}

// GetTenantID returns the tenant id from the payload, falling back to the
// message header.
func (m *IncomingMessage) GetTenantID() string {
	if m.Record != nil && m.Record.TenantID != "" {
		return m.Record.TenantID
	}
	return m.Headers["tenant_id"]
}

// GetPlatform returns the record's platform.
func (m *IncomingMessage) GetPlatform() string {
	if m.Record == nil {
		return ""
	}
	return m.Record.Platform
}

// GetSourceID returns the record's source id.
func (m *IncomingMessage) GetSourceID() string {
	if m.Record == nil {
		return ""
	}
	return m.Record.SourceID
}

// GetData marshals the record's data payload.
func (m *IncomingMessage) GetData() json.RawMessage {
	if m.Record == nil || m.Record.Data == nil {
		return nil
	}
	data, _ := json.Marshal(m.Record.Data)
	return data
}

// DataColumns returns the record payload's field names.
func (m *IncomingMessage) DataColumns() []string {
	if m.Record == nil {
		return nil
	}
	cols := make([]string, 0, len(m.Record.Data))
	for k := range m.Record.Data {
		cols = append(cols, k)
	}
	return cols
}
