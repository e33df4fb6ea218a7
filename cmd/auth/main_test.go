package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile = ""

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	output, err := execute(t, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"serve", "migrate", "housekeeping"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
	assert.Contains(t, output, "--db.driver")
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFlag string
	}{
		{"separate value", []string{"--config", "/etc/authd.yaml", "--help"}, "/etc/authd.yaml"},
		{"with equals", []string{"--config=/tmp/authd.yaml", "--help"}, "/tmp/authd.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFlag, configFile)
		})
	}
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "authd.db")

	output, err := execute(t, "migrate", "--db.dsn", dsn)
	require.NoError(t, err, output)
	assert.Contains(t, output, "Migrations completed successfully")

	_, err = os.Stat(dsn)
	require.NoError(t, err)

	// Applying again is a no-op.
	_, err = execute(t, "migrate", "--db.dsn", dsn)
	require.NoError(t, err)
}

func TestMigrateCommand_InvalidConfig(t *testing.T) {
	_, err := execute(t, "migrate", "--db.driver", "mysql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.driver")
}

func TestHousekeepingCommand(t *testing.T) {
	dir := t.TempDir()

	output, err := execute(t, "housekeeping",
		"--env", "dev",
		"--log.level", "error",
		"--db.dsn", filepath.Join(dir, "authd.db"),
		"--pepper.file", filepath.Join(dir, "pepper"),
	)
	require.NoError(t, err, output)
	assert.Contains(t, output, "Deleted 0 expired sessions and 0 expired verification codes")
}
