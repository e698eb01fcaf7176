package repositories

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"chatroom-service/internal/models"
)

func setupSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestUserRepoFindByEmail(t *testing.T) {
	db, mock := setupSQLMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT id, email, username, my_rooms_ids FROM users WHERE email=\$1`).
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "my_rooms_ids"}).AddRow("alice", "a@example.com", "Alice", "{r1,r2}"))

	user, err := repo.FindByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.Equal(t, "alice", user.ID)
	require.Equal(t, []string{"r1", "r2"}, []string(user.MyRoomsIDs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoGetUserNotFound(t *testing.T) {
	db, mock := setupSQLMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT id, email, username, my_rooms_ids FROM users WHERE id=\$1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "my_rooms_ids"}))

	_, err := repo.GetUser(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoCreateUser(t *testing.T) {
	db, mock := setupSQLMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("alice", "a@example.com", "Alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateUser(context.Background(), models.User{ID: "alice", Email: "a@example.com", Username: "Alice"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoAddRoom(t *testing.T) {
	db, mock := setupSQLMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET my_rooms_ids = CASE`).
		WithArgs("alice", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET my_rooms_ids = CASE`).
		WithArgs("ghost", "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.AddRoom(context.Background(), "alice", "r1"))
	require.ErrorIs(t, repo.AddRoom(context.Background(), "ghost", "r1"), ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoRemoveRoom(t *testing.T) {
	db, mock := setupSQLMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET my_rooms_ids = array_remove\(my_rooms_ids, \$2\) WHERE id=\$1`).
		WithArgs("alice", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RemoveRoom(context.Background(), "alice", "r1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
