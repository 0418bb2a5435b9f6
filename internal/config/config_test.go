package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadServer(dir, "", Server{}, nil)
	require.NoError(t, err)
	require.Equal(t, DefaultServer(), cfg)
}

func TestLoadServerProjectFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName),
		[]byte(`{"tick_interval_ms": 500, "fifo_dir": "/tmp/custom"}`),
		0o644,
	))

	cfg, err := LoadServer(dir, "", Server{}, nil)
	require.NoError(t, err)
	require.Equal(t, 500, cfg.TickIntervalMS)
	require.Equal(t, "/tmp/custom", cfg.FifoDir)
	require.Equal(t, "doc.md", cfg.DocPath)
}

func TestLoadServerJSONCComments(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName),
		[]byte("{\n  // tick cadence\n  \"tick_interval_ms\": 50,\n}\n"),
		0o644,
	))

	cfg, err := LoadServer(dir, "", Server{}, nil)
	require.NoError(t, err)
	require.Equal(t, 50, cfg.TickIntervalMS)
}

func TestLoadServerCLIOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName),
		[]byte(`{"fifo_dir": "/from/file"}`),
		0o644,
	))

	cfg, err := LoadServer(dir, "", Server{FifoDir: "/from/cli"}, nil)
	require.NoError(t, err)
	require.Equal(t, "/from/cli", cfg.FifoDir)
}

func TestLoadServerExplicitMissingFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadServer(dir, "does-not-exist.json", Server{}, nil)
	require.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoadServerInvalidJSONErrors(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName),
		[]byte(`{not json`),
		0o644,
	))

	_, err := LoadServer(dir, "", Server{}, nil)
	require.ErrorIs(t, err, ErrConfigInvalid)
}

func TestLoadServerExplicitEmptyFifoDirInProjectFileRejected(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName),
		[]byte(`{"fifo_dir": ""}`),
		0o644,
	))

	_, err := LoadServer(dir, "", Server{}, nil)
	require.ErrorIs(t, err, ErrFifoDirEmpty)
}

func TestLoadServerZeroValueOverrideIsNotTreatedAsExplicitEmpty(t *testing.T) {
	dir := t.TempDir()

	// A zero-value Server{} passed as the CLI-overrides layer is what a
	// caller that never touched --fifo-dir produces; it must not be
	// confused with an explicit empty override (that distinction is the
	// CLI layer's job, via pflag's Changed, exercised in cmd/mdserverd).
	cfg, err := LoadServer(dir, "", Server{}, nil)
	require.NoError(t, err)
	require.Equal(t, DefaultServer().FifoDir, cfg.FifoDir)
}

func TestLoadClientExplicitEmptyFifoDirInProjectFileRejected(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName),
		[]byte(`{"fifo_dir": ""}`),
		0o644,
	))

	_, err := LoadClient(dir, "", Client{}, nil)
	require.ErrorIs(t, err, ErrFifoDirEmpty)
}

func TestLoadClientDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadClient(dir, "", Client{}, nil)
	require.NoError(t, err)
	require.Equal(t, DefaultClient(), cfg)
}

func TestLoadClientProjectFile(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName),
		[]byte(`{"username": "alice", "server_pid": 1234}`),
		0o644,
	))

	cfg, err := LoadClient(dir, "", Client{}, nil)
	require.NoError(t, err)
	require.Equal(t, "alice", cfg.Username)
	require.Equal(t, 1234, cfg.ServerPID)
}

func TestServerFlagSetParsesOverrides(t *testing.T) {
	fs, overrides := ServerFlagSet()
	err := fs.Parse([]string{"--tick-interval-ms=100", "--fifo-dir=/tmp/x"})
	require.NoError(t, err)
	require.Equal(t, 100, overrides.TickIntervalMS)
	require.Equal(t, "/tmp/x", overrides.FifoDir)
}

func TestClientFlagSetParsesOverrides(t *testing.T) {
	fs, overrides := ClientFlagSet()
	err := fs.Parse([]string{"--username=bob", "--server-pid=42"})
	require.NoError(t, err)
	require.Equal(t, "bob", overrides.Username)
	require.Equal(t, 42, overrides.ServerPID)
}
