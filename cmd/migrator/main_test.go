package main

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("MIGRATIONS_PATH", "/opt/migrations")
	assert.Equal(t, "/opt/migrations", GetEnv("MIGRATIONS_PATH", "./migrations"))

	t.Setenv("MIGRATIONS_PATH", "")
	assert.Equal(t, "./migrations", GetEnv("MIGRATIONS_PATH", "./migrations"))
}

func TestPrintTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT table_name").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("cart_items").AddRow("orders"))

	require.NoError(t, printTables(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
