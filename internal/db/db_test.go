package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS users_email_idx`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS rooms`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, runMigrations(sqlx.NewDb(mockDB, "postgres")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsStopsOnError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnError(errors.New("permission denied"))

	require.Error(t, runMigrations(sqlx.NewDb(mockDB, "postgres")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectRedis(t *testing.T) {
	srv, err := miniredis.Run()
	require.NoError(t, err)

	addr := srv.Addr()

	client, err := ConnectRedis(context.Background(), addr, "", 0)
	require.NoError(t, err)
	client.Close()

	srv.Close()
	_, err = ConnectRedis(context.Background(), addr, "", 0)
	require.Error(t, err)
}
