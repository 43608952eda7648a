package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	content := `{
		"source": {"server": "srv1", "port": "1444", "user": "sa", "password": "x", "database": "SalesDev"},
		"target": {"database": "SalesProd"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "srv1", cfg.Source.Server)
	assert.Equal(t, "1444", cfg.Source.Port)
	assert.Equal(t, "SalesDev", cfg.Source.Database)

	// Missing fields fall back to defaults.
	assert.Equal(t, "localhost", cfg.Target.Server)
	assert.Equal(t, "1433", cfg.Target.Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("SCHEMACMP_SOURCE_DATABASE", "SalesDev")
	t.Setenv("SCHEMACMP_TARGET_DATABASE", "SalesProd")
	t.Setenv("SCHEMACMP_TARGET_SERVER", "prod-sql")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "SalesDev", cfg.Source.Database)
	assert.Equal(t, "prod-sql", cfg.Target.Server)
	assert.Equal(t, "localhost", cfg.Source.Server)
	assert.NoError(t, cfg.Validate())
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	content := `{"source": {"database": "FromFile"}, "target": {"database": "SalesProd"}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("SCHEMACMP_SOURCE_DATABASE", "FromEnv")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "FromEnv", cfg.Source.Database)
}

func TestValidateRequiresDatabases(t *testing.T) {
	var cfg Config
	assert.Error(t, cfg.Validate())

	cfg.Source.Database = "A"
	assert.Error(t, cfg.Validate())

	cfg.Target.Database = "B"
	assert.NoError(t, cfg.Validate())
}

func TestEndpointConversion(t *testing.T) {
	e := EndpointConfig{Server: "s", Port: "1433", User: "u", Password: "p", Database: "d"}
	ep := e.Endpoint()
	assert.Equal(t, "s", ep.Server)
	assert.Equal(t, "d", ep.Database)
}
