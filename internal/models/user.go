// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// User is an account record. Email, username and names are stored lowercase;
// email is the uniqueness key.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID             string    `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Username       string    `db:"username" json:"username"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	EmailConfirmed bool      `db:"email_confirmed" json:"email_confirmed"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName returns the name used in transactional mail greetings.
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}
