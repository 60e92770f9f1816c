package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrl-q/ctrlq/internal/transport"
)

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	return flags
}

func TestLoadAppliesDefaults(t *testing.T) {
	flags := newFlags()
	require.NoError(t, flags.Set("host", "qseow.example.com"))
	require.NoError(t, flags.Set("bearer-token", "token"))

	m, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, "qseow.example.com", m.Host)
	assert.Equal(t, 4747, m.EnginePort)
	assert.Equal(t, 4242, m.RepoPort)
	assert.True(t, m.Secure)
}

func TestLoadEnvOverridesDefaultButFlagWins(t *testing.T) {
	t.Setenv("CTRLQ_ENGINE_PORT", "9999")
	t.Setenv("CTRLQ_HOST", "from-env")

	flags := newFlags()
	require.NoError(t, flags.Set("bearer-token", "token"))
	m, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, 9999, m.EnginePort)
	assert.Equal(t, "from-env", m.Host)

	flags2 := newFlags()
	require.NoError(t, flags2.Set("host", "from-flag"))
	require.NoError(t, flags2.Set("bearer-token", "token"))
	m2, err := Load(flags2)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", m2.Host, "explicit flag must win over env var")
}

func TestLoadRejectsMissingHost(t *testing.T) {
	flags := newFlags()
	require.NoError(t, flags.Set("bearer-token", "token"))
	_, err := Load(flags)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadRejectsMutuallyExclusiveAuth(t *testing.T) {
	flags := newFlags()
	require.NoError(t, flags.Set("host", "h"))
	require.NoError(t, flags.Set("bearer-token", "token"))
	require.NoError(t, flags.Set("cert-file", "cert.pem"))
	require.NoError(t, flags.Set("key-file", "key.pem"))
	_, err := Load(flags)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadRejectsNoAuth(t *testing.T) {
	flags := newFlags()
	require.NoError(t, flags.Set("host", "h"))
	_, err := Load(flags)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTransportConfigSelectsAuthMode(t *testing.T) {
	m := &Model{Host: "h", BearerToken: "tok"}
	cfg := m.TransportConfig()
	assert.Equal(t, "h", cfg.Host)
	assert.Equal(t, "tok", cfg.BearerToken)
	assert.Equal(t, transport.AuthBearer, cfg.AuthMode)
}
