package model

import "time"

// UserType is the closed set of account types. CLIENT is the default for
// self-registered and social-login accounts; the remaining values are
// assigned by staff.
type UserType string

const (
	UserTypeClient    UserType = "CLIENT"
	UserTypeLawyer    UserType = "LAWYER"
	UserTypeMarketing UserType = "MARKETING"
	UserTypeManager   UserType = "MANAGER"
)

// UserTypes lists every valid type, in a stable order.
var UserTypes = []UserType{UserTypeClient, UserTypeLawyer, UserTypeMarketing, UserTypeManager}

// ParseUserType normalizes and validates a user type string.
func ParseUserType(s string) (UserType, bool) {
	switch UserType(s) {
	case UserTypeClient, UserTypeLawyer, UserTypeMarketing, UserTypeManager:
		return UserType(s), true
	}
	return "", false
}

// User mirrors the `users` table. PasswordHash only ever holds a bcrypt
// hash; the plaintext password never reaches this struct. The hash is not
// serialized into responses.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	CPF          string    `json:"cpf"`
	RG           string    `json:"rg"`
	Type         UserType  `json:"type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
