package model

import "time"

type UserRole string

const (
	UserRoleAdmin  UserRole = "Admin"
	UserRoleClient UserRole = "Client"
)

func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleClient
}

type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
