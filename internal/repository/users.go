package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tigerroll/roomrate/internal/adapter/database"
	"github.com/tigerroll/roomrate/internal/domain/model"
)

var (
	// ErrUserNotFound is returned when no account has the requested e-mail.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when an account with the same e-mail already exists.
	ErrUserExists = errors.New("user already exists")
)

// FindUserByEmail looks an account up by e-mail (case-insensitive).
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var users []model.User
	if err := s.conn.ExecuteQueryAdvanced(ctx, &users, map[string]interface{}{"email": normalizeEmail(email)}, "", 1); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return &users[0], nil
}

// CreateUser stores a new account with an already hashed password.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*model.User, error) {
	user := &model.User{
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := s.conn.ExecuteUpdate(ctx, user, "CREATE", "users", nil); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
