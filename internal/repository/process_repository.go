package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/avialex/api/internal/model"
)

const processColumns = "id,user_id,name,involved_parties,process_number,status,creation_date,last_modified_date,recovered_value,won"

// ProcessRepo persists legal process records.
type ProcessRepo struct{ DB *sql.DB }

func NewProcessRepo(db *sql.DB) *ProcessRepo { return &ProcessRepo{DB: db} }

// Create inserts a process and fills in its id and timestamps.
func (r *ProcessRepo) Create(ctx context.Context, p *model.Process) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO processes (user_id, name, involved_parties, process_number, status, creation_date, last_modified_date, recovered_value, won) VALUES (?,?,?,?,?,?,?,?,?)",
		p.ClientID, p.Name, joinParties(p.InvolvedParties), p.ProcessNumber, string(p.Status), now, now, p.RecoveredValue, p.Won)
	if err != nil {
		return mapProcessDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.CreationDate = now
	p.LastModifiedDate = now
	return nil
}

// GetByID fetches a process by id.
func (r *ProcessRepo) GetByID(ctx context.Context, id uint64) (model.Process, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+processColumns+" FROM processes WHERE id=? LIMIT 1", id))
}

// GetByNumber fetches a process by its unique case number.
func (r *ProcessRepo) GetByNumber(ctx context.Context, number int) (model.Process, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+processColumns+" FROM processes WHERE process_number=? LIMIT 1", number))
}

// ListAll returns every process, newest first.
func (r *ProcessRepo) ListAll(ctx context.Context) ([]model.Process, error) {
	return r.list(ctx, "SELECT "+processColumns+" FROM processes ORDER BY creation_date DESC")
}

// ListByClientName returns processes whose client matches the given name.
func (r *ProcessRepo) ListByClientName(ctx context.Context, name string) ([]model.Process, error) {
	return r.list(ctx,
		"SELECT p.id,p.user_id,p.name,p.involved_parties,p.process_number,p.status,p.creation_date,p.last_modified_date,p.recovered_value,p.won"+
			" FROM processes p JOIN users u ON u.id=p.user_id WHERE u.name=? ORDER BY p.creation_date DESC", name)
}

// ListByClientCPF returns processes whose client matches the given cpf.
func (r *ProcessRepo) ListByClientCPF(ctx context.Context, cpf string) ([]model.Process, error) {
	return r.list(ctx,
		"SELECT p.id,p.user_id,p.name,p.involved_parties,p.process_number,p.status,p.creation_date,p.last_modified_date,p.recovered_value,p.won"+
			" FROM processes p JOIN users u ON u.id=p.user_id WHERE u.cpf=? ORDER BY p.creation_date DESC", cpf)
}

// ExistsByClient reports whether any process references the user.
func (r *ProcessRepo) ExistsByClient(ctx context.Context, userID uint64) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM processes WHERE user_id=?)", userID).Scan(&exists)
	return exists, err
}

// Update writes all mutable columns of the process. The caller merges
// partial input into the current row first.
func (r *ProcessRepo) Update(ctx context.Context, p model.Process) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE processes SET user_id=?, name=?, involved_parties=?, process_number=?, status=?, last_modified_date=?, recovered_value=?, won=? WHERE id=?",
		p.ClientID, p.Name, joinParties(p.InvolvedParties), p.ProcessNumber, string(p.Status), time.Now().UTC(), p.RecoveredValue, p.Won, p.ID)
	if err != nil {
		return mapProcessDuplicate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a process.
func (r *ProcessRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM processes WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- dashboard aggregation queries ----

// CountByStatusBetween counts processes in any of the statuses created in
// the window.
func (r *ProcessRepo) CountByStatusBetween(ctx context.Context, statuses []model.ProcessStatus, start, end time.Time) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, 0, len(statuses)+2)
	for _, s := range statuses {
		args = append(args, string(s))
	}
	args = append(args, start, end)
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM processes WHERE status IN ("+placeholders+") AND creation_date BETWEEN ? AND ?",
		args...).Scan(&n)
	return n, err
}

// CountBetween counts all processes created in the window.
func (r *ProcessRepo) CountBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM processes WHERE creation_date BETWEEN ? AND ?",
		start, end).Scan(&n)
	return n, err
}

// CountDistinctClientsBetween counts distinct clients with processes
// created in the window.
func (r *ProcessRepo) CountDistinctClientsBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT user_id) FROM processes WHERE creation_date BETWEEN ? AND ?",
		start, end).Scan(&n)
	return n, err
}

// MonthlyRow is one month's slice of the won/lost breakdown. A process
// counts as lost when it completed without being marked won.
type MonthlyRow struct {
	Year      int
	Month     int
	Won       int64
	Lost      int64
	Recovered float64
}

// MonthlyWonLost groups processes created in the window by calendar month.
func (r *ProcessRepo) MonthlyWonLost(ctx context.Context, start, end time.Time) ([]MonthlyRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT YEAR(creation_date), MONTH(creation_date), "+
			"COALESCE(SUM(won=1),0), "+
			"COALESCE(SUM(status='COMPLETED' AND (won IS NULL OR won=0)),0), "+
			"COALESCE(SUM(recovered_value),0) "+
			"FROM processes WHERE creation_date BETWEEN ? AND ? "+
			"GROUP BY YEAR(creation_date), MONTH(creation_date) "+
			"ORDER BY YEAR(creation_date), MONTH(creation_date)",
		start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthlyRow
	for rows.Next() {
		var m MonthlyRow
		if err := rows.Scan(&m.Year, &m.Month, &m.Won, &m.Lost, &m.Recovered); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ProcessRepo) list(ctx context.Context, query string, args ...any) ([]model.Process, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Process
	for rows.Next() {
		var p model.Process
		if err := scanProcess(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProcessRepo) scanOne(row *sql.Row) (model.Process, error) {
	var p model.Process
	err := scanProcess(row, &p)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Process{}, ErrNotFound
	}
	return p, err
}

func scanProcess(s scanner, p *model.Process) error {
	var (
		parties   string
		status    string
		recovered sql.NullFloat64
		won       sql.NullBool
	)
	err := s.Scan(&p.ID, &p.ClientID, &p.Name, &parties, &p.ProcessNumber, &status,
		&p.CreationDate, &p.LastModifiedDate, &recovered, &won)
	if err != nil {
		return err
	}
	p.InvolvedParties = splitParties(parties)
	p.Status = model.ProcessStatus(status)
	if recovered.Valid {
		p.RecoveredValue = &recovered.Float64
	}
	if won.Valid {
		p.Won = &won.Bool
	}
	return nil
}

// Parties are stored as a single comma-joined column.
func joinParties(parties []string) string { return strings.Join(parties, ",") }

func splitParties(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func mapProcessDuplicate(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrProcessNumberExists
	}
	return err
}
