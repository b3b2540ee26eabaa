package events

// SchemaVersion is stamped on every emitted event so downstream
// consumers can handle payload changes.
const SchemaVersion = "1.0"

// Event types emitted by the service.
const (
	EventRecordStaged      = "record.staged"
	EventMatchRunCompleted = "match.run.completed"
	EventMatchRunFailed    = "match.run.failed"
)
