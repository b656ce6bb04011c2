package model

// MonthlyProcessStats is one row of the dashboard's month-by-month
// won/lost breakdown. Month is a pt-BR label like "Janeiro/2026".
type MonthlyProcessStats struct {
	Month         string `json:"month"`
	WonProcesses  int64  `json:"won_processes"`
	LostProcesses int64  `json:"lost_processes"`
}

// Dashboard aggregates process statistics for a date range.
type Dashboard struct {
	ActiveProcesses   int64                 `json:"active_processes"`
	ActiveClients     int64                 `json:"active_clients"`
	RecoveredValue    float64               `json:"recovered_value"`
	SuccessFeePercent int64                 `json:"success_fee_percent"`
	MonthlyStats      []MonthlyProcessStats `json:"monthly_stats"`
	TotalProcesses    int64                 `json:"total_processes"`
}
