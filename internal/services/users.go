package services

import (
	"context"
	"errors"
	"strings"

	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

// UserDirectory registers users on first sign-in.
type UserDirectory struct {
	users repositories.UserRepository
}

// NewUserDirectory constructs a UserDirectory.
func NewUserDirectory(users repositories.UserRepository) *UserDirectory {
	return &UserDirectory{users: users}
}

// FindOrCreate creates the user unless one is already registered with the
// email. It reports whether a user was created.
func (d *UserDirectory) FindOrCreate(ctx context.Context, userID, email, username string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, &ValidationError{Field: "userId", Reason: "required"}
	}
	if strings.TrimSpace(email) == "" {
		return false, &ValidationError{Field: "userEmail", Reason: "required"}
	}

	_, err := d.users.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return false, storeError("find user by email", err)
	}

	if err := d.users.CreateUser(ctx, models.User{ID: userID, Email: email, Username: username}); err != nil {
		return false, storeError("create user", err)
	}
	return true, nil
}
