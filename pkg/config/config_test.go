package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("well-board")
	require.NoError(t, err)

	assert.Equal(t, "well-board", cfg.ServiceName)
	assert.Equal(t, "well-board", cfg.DB.DBName)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24, cfg.JWT.ExpirationHours)
	assert.Equal(t, 10*time.Second, cfg.Scoring.Timeout)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SCORING_TIMEOUT", "3s")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")

	cfg, err := Load("well-board")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Scoring.Timeout)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
}

func TestLogConfigCarriesStartupFields(t *testing.T) {
	cfg, err := Load("well-board")
	require.NoError(t, err)

	fields := cfg.LogConfig()
	require.Len(t, fields, 6)
	assert.Equal(t, "service", fields[0].Key)
	assert.Equal(t, "well-board", fields[0].String)
	assert.Equal(t, "server_port", fields[5].Key)
}

func TestDSNIncludesAllParts(t *testing.T) {
	db := DBConfig{
		Host: "db", Port: "5432", User: "app",
		Password: "secret", DBName: "wellboard", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=app password=secret dbname=wellboard sslmode=disable",
		db.GetDSN())
}
