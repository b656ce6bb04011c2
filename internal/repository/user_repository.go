package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/avialex/api/internal/auth"
	"github.com/avialex/api/internal/model"
)

const userColumns = "id,name,address,email,phone,password_hash,cpf,rg,type,created_at,updated_at"

// UserRepo persists application users.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID. The plaintext password is
// hashed here; it is never written to the database. Duplicate email/cpf
// violations are mapped to sentinel errors.
func (r *UserRepo) Create(ctx context.Context, u model.User, password string, cost int) (uint64, error) {
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, address, email, phone, password_hash, cpf, rg, type) VALUES (?,?,?,?,?,?,?,?)",
		u.Name, u.Address, normalizeEmail(u.Email), u.Phone, hash, u.CPF, u.RG, string(u.Type))
	if err != nil {
		return 0, mapUserDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UserFilter narrows a Search. Empty fields are ignored; string matches are
// case-insensitive equality.
type UserFilter struct {
	Name    string
	Address string
	Email   string
	Phone   string
	CPF     string
	RG      string
	Type    model.UserType
}

// Search returns users matching all set filter fields.
func (r *UserRepo) Search(ctx context.Context, f UserFilter) ([]model.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE 1=1"
	var args []any
	add := func(col, val string) {
		if val != "" {
			query += " AND LOWER(" + col + ")=LOWER(?)"
			args = append(args, val)
		}
	}
	add("name", f.Name)
	add("address", f.Address)
	add("email", f.Email)
	add("phone", f.Phone)
	add("cpf", f.CPF)
	add("rg", f.RG)
	if f.Type != "" {
		query += " AND type=?"
		args = append(args, string(f.Type))
	}
	query += " ORDER BY id"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update writes all mutable columns of the user. The caller is responsible
// for merging partial input into the current row first.
func (r *UserRepo) Update(ctx context.Context, u model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, address=?, email=?, phone=?, password_hash=?, cpf=?, rg=?, type=? WHERE id=?",
		u.Name, u.Address, normalizeEmail(u.Email), u.Phone, u.PasswordHash, u.CPF, u.RG, string(u.Type), u.ID)
	if err != nil {
		return mapUserDuplicate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Zero affected rows is also returned for no-op updates, so probe
		// for existence before reporting not found.
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePassword replaces the stored hash for the user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// Delete removes a user. Deletion is blocked while processes still
// reference the user.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	var refs int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM processes WHERE user_id=?", id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrUserHasProcesses
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := scanUser(row, &u)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface{ Scan(dest ...any) error }

func scanUser(s scanner, u *model.User) error {
	var typ string
	err := s.Scan(&u.ID, &u.Name, &u.Address, &u.Email, &u.Phone, &u.PasswordHash,
		&u.CPF, &u.RG, &typ, &u.CreatedAt, &u.UpdatedAt)
	u.Type = model.UserType(typ)
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mapUserDuplicate converts MySQL duplicate-key failures (error 1062) on the
// users table into sentinel errors, keyed off the index name in the message.
func mapUserDuplicate(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	if strings.Contains(msg, "cpf") {
		return ErrCPFExists
	}
	return ErrEmailExists
}
