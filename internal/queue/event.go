// Package queue defines message payloads exchanged over the message broker.
package queue

// StatusChangedQueue is the durable queue carrying process status changes.
const StatusChangedQueue = "process.status-changed"

// ProcessStatusChangedEvent is published when a process moves to a new
// status. It carries enough information for downstream consumers to notify
// the client without querying the primary database.
type ProcessStatusChangedEvent struct {
	ProcessID     uint64 `json:"process_id"`
	ProcessNumber int    `json:"process_number"`
	ClientEmail   string `json:"client_email"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
	ChangedAt     string `json:"changed_at"`
}
