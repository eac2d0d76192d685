// Package user defines the portal's local user record and its persistence
// contract. A user authenticated through the identity provider carries an
// OAuthID and no password hash; a local-credentials user carries a password
// hash and no OAuthID.
package user

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateEmail is returned by Create when the email is already taken.
var ErrDuplicateEmail = errors.New("user: email already registered")

// User is the persisted local user record.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:idx_users_email_oauth" json:"email"`
	Name         string    `gorm:"size:255" json:"name"`
	OAuthID      string    `gorm:"column:oauth_id;size:255;uniqueIndex:idx_users_email_oauth" json:"oauthId,omitempty"`
	PasswordHash string    `gorm:"column:password_hash;size:255" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store is the persistence contract the auth flows require. Lookups return
// (nil, nil) when no record matches.
type Store interface {
	// Create inserts a new user. Returns ErrDuplicateEmail when the email is
	// already registered.
	Create(ctx context.Context, u *User) error

	// FindByID looks a user up by primary key.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail looks a user up by email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindOrCreateOAuth finds the user keyed on (email, oauthID), creating one
	// with an empty password when absent. Concurrent identical calls must
	// produce exactly one record.
	FindOrCreateOAuth(ctx context.Context, email, oauthID, name string) (*User, error)
}
