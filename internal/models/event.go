package models

import "time"

// EventKind identifies the snapshot lifecycle operation an audit event records.
type EventKind string

const (
	KindCreate EventKind = "CreateSnapshot"
	KindDelete EventKind = "DeleteSnapshot"
)

// SnapshotEvent represents one CloudTrail audit record for a snapshot
// lifecycle operation. Events are immutable once fetched; the audit log is
// append-only and authoritative for history inside the queried window.
type SnapshotEvent struct {
	EventID string
	Kind    EventKind
	Time    time.Time
	// Actor is the identity that issued the API call (IAM ARN tail or the
	// CloudTrail username, whichever is available).
	Actor string
	// VolumeID is the source volume from the request parameters. Empty when
	// the request failed before a volume was resolved, and usually empty on
	// delete events.
	VolumeID string
	// SnapshotID comes from the response elements on create events and from
	// the request parameters on delete events. Empty on failed creates.
	SnapshotID string
	// ErrorCode is the provider-reported failure code, empty on success.
	ErrorCode string
}
