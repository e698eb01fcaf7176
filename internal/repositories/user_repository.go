package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chatroom-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts user persistence.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, userID string) (models.User, error)
	AddRoom(ctx context.Context, userID string, roomID string) error
	RemoveRoom(ctx context.Context, userID string, roomID string) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// FindByEmail returns the first user registered with the email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, email, username, my_rooms_ids FROM users WHERE email=$1 LIMIT 1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// CreateUser writes a user with an empty room list. An existing row with the
// same id is overwritten, room list included.
func (r *UserRepo) CreateUser(ctx context.Context, user models.User) error {
	query := `INSERT INTO users (id, email, username, my_rooms_ids) VALUES ($1, $2, $3, '{}')
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, username = EXCLUDED.username, my_rooms_ids = '{}'`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.Username)
	return err
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, email, username, my_rooms_ids FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// AddRoom appends roomID to the user's rooms unless it is already listed.
func (r *UserRepo) AddRoom(ctx context.Context, userID string, roomID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET my_rooms_ids = CASE
            WHEN $2 = ANY(my_rooms_ids) THEN my_rooms_ids
            ELSE array_append(my_rooms_ids, $2) END
        WHERE id=$1`, userID, roomID)
	return requireRow(res, err)
}

// RemoveRoom drops every occurrence of roomID from the user's rooms.
func (r *UserRepo) RemoveRoom(ctx context.Context, userID string, roomID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET my_rooms_ids = array_remove(my_rooms_ids, $2) WHERE id=$1`, userID, roomID)
	return requireRow(res, err)
}

func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
