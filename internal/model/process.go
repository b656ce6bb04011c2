package model

import "time"

// ProcessStatus is the lifecycle state of a legal process.
type ProcessStatus string

const (
	StatusCreated    ProcessStatus = "CREATED"
	StatusInProgress ProcessStatus = "IN_PROGRESS"
	StatusCompleted  ProcessStatus = "COMPLETED"
)

// ParseProcessStatus validates a status string.
func ParseProcessStatus(s string) (ProcessStatus, bool) {
	switch ProcessStatus(s) {
	case StatusCreated, StatusInProgress, StatusCompleted:
		return ProcessStatus(s), true
	}
	return "", false
}

// PtBR returns the Portuguese label used in client-facing notifications.
func (s ProcessStatus) PtBR() string {
	switch s {
	case StatusCreated:
		return "Criado"
	case StatusInProgress:
		return "Em Progresso"
	case StatusCompleted:
		return "Finalizado"
	}
	return string(s)
}

// Process mirrors the `processes` table. InvolvedParties is stored as a
// single comma-joined column and exposed as a list. RecoveredValue and Won
// are nullable: both stay unset until a process is resolved.
type Process struct {
	ID               uint64        `json:"id"`
	ClientID         uint64        `json:"client_id"`
	Name             string        `json:"name"`
	InvolvedParties  []string      `json:"involved_parties"`
	ProcessNumber    int           `json:"process_number"`
	Status           ProcessStatus `json:"status"`
	CreationDate     time.Time     `json:"creation_date"`
	LastModifiedDate time.Time     `json:"last_modified_date"`
	RecoveredValue   *float64      `json:"recovered_value"`
	Won              *bool         `json:"won"`
}
