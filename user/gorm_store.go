package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skillsenselab/portal-auth/logger"
)

// GormStore is a Store backed by GORM. The composite unique index on
// (email, oauth_id) backs the atomic find-or-create upsert.
type GormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a Store on the given database handle and runs the
// schema migration for the users table.
func NewGormStore(db *gorm.DB, log *logger.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("user: migrate schema: %w", err)
	}
	return &GormStore{db: db, log: log.WithComponent("user-store")}, nil
}

// Create inserts a new user, mapping uniqueness violations to ErrDuplicateEmail.
func (s *GormStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	err := s.db.WithContext(ctx).Create(u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("user: create: %w", err)
	}
	return nil
}

// FindByID looks a user up by primary key.
func (s *GormStore) FindByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("user: find by id: %w", err)
	}
	return &u, nil
}

// FindByEmail looks a user up by email.
func (s *GormStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("user: find by email: %w", err)
	}
	return &u, nil
}

// FindOrCreateOAuth implements the find-or-create keyed on (email, oauthID)
// as an insert that yields to an existing row on conflict, then a fetch.
// The unique index makes this safe under concurrent identical requests.
func (s *GormStore) FindOrCreateOAuth(ctx context.Context, email, oauthID, name string) (*User, error) {
	candidate := &User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		OAuthID:   oauthID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}, {Name: "oauth_id"}},
			DoNothing: true,
		}).
		Create(candidate).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("user: upsert oauth user: %w", err)
	}

	var u User
	err = s.db.WithContext(ctx).First(&u, "email = ? AND oauth_id = ?", email, oauthID).Error
	if err != nil {
		return nil, fmt.Errorf("user: load oauth user: %w", err)
	}
	return &u, nil
}
