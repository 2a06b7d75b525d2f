package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-rppg/common/config"
)

func TestConfigurePool(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configurePool(db, &config.DatabaseConfig{MaxConns: 4, MaxIdle: 10})
	assert.Equal(t, 4, db.Stats().MaxOpenConnections)
}

func TestOpen_Unreachable(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     1,
		User:     "postgres",
		Password: "postgres",
		Database: "owlrd",
		SSLMode:  "disable",
	}

	db, err := Open(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
