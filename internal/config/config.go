// Package config binds the CLI's connection and behavioral parameters
// through spf13/viper layered under spf13/cobra flags: explicit flags win,
// then CTRLQ_* environment variables, then defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ctrl-q/ctrlq/internal/transport"
)

// Model is the resolved configuration for a single Ctrl-Q run.
type Model struct {
	Host          string `mapstructure:"host"`
	EnginePort    int    `mapstructure:"engine-port"`
	RepoPort      int    `mapstructure:"repo-port"`
	VirtualProxy  string `mapstructure:"virtual-proxy"`
	Secure        bool   `mapstructure:"secure"`
	SchemaVersion string `mapstructure:"schema-version"`
	CertFile      string `mapstructure:"cert-file"`
	KeyFile       string `mapstructure:"key-file"`
	RootCertFile  string `mapstructure:"root-cert-file"`
	BearerToken   string `mapstructure:"bearer-token"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
}

// BindFlags registers every configuration key as a persistent flag on cmd,
// with the documented defaults. Called once on the root command so every
// subcommand inherits the same connection surface.
func BindFlags(flags *pflag.FlagSet) {
	flags.String("host", "", "QSEoW host name or IP")
	flags.Int("engine-port", 4747, "Engine websocket port")
	flags.Int("repo-port", 4242, "Repository REST port")
	flags.String("virtual-proxy", "", "virtual proxy prefix")
	flags.Bool("secure", true, "verify server TLS certificates")
	flags.String("schema-version", "12.612.0", "QRS API schema version")
	flags.String("cert-file", "", "client certificate file (certificate auth)")
	flags.String("key-file", "", "client key file (certificate auth)")
	flags.String("root-cert-file", "", "root CA certificate file")
	flags.String("bearer-token", "", "bearer token (JWT/API-key auth)")
	flags.String("log-level", "info", "log level: debug|info|warn|error")
	flags.String("log-format", "text", "log format: text|json")
}

// Load layers flags over CTRLQ_* environment variables over the flag
// defaults, and validates the mutually-exclusive-auth configuration error
// class fatally before any network I/O.
func Load(flags *pflag.FlagSet) (*Model, error) {
	v := viper.New()
	v.SetEnvPrefix("CTRLQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	var m Model
	if err := v.Unmarshal(&m); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate enforces the configuration error class from §7: missing/invalid
// flags and mutually exclusive auth modes are fatal before any network I/O.
func (m *Model) Validate() error {
	if m.Host == "" {
		return fmt.Errorf("%w: --host is required", ErrInvalidConfig)
	}
	hasCert := m.CertFile != "" || m.KeyFile != ""
	hasBearer := m.BearerToken != ""
	if hasCert && hasBearer {
		return fmt.Errorf("%w: --cert-file/--key-file and --bearer-token are mutually exclusive", ErrInvalidConfig)
	}
	if !hasCert && !hasBearer {
		return fmt.Errorf("%w: one of --cert-file/--key-file or --bearer-token is required", ErrInvalidConfig)
	}
	if hasCert && (m.CertFile == "" || m.KeyFile == "") {
		return fmt.Errorf("%w: --cert-file and --key-file must both be set", ErrInvalidConfig)
	}
	return nil
}

// TransportConfig translates the resolved model into a transport.Config,
// selecting the auth mode from whichever credential the model carries.
func (m *Model) TransportConfig() transport.Config {
	cfg := transport.Config{
		Host:          m.Host,
		EnginePort:    m.EnginePort,
		RepoPort:      m.RepoPort,
		VirtualProxy:  m.VirtualProxy,
		Secure:        m.Secure,
		SchemaVersion: m.SchemaVersion,
		CertFile:      m.CertFile,
		KeyFile:       m.KeyFile,
		RootCAFile:    m.RootCertFile,
		BearerToken:   m.BearerToken,
	}
	if m.BearerToken != "" {
		cfg.AuthMode = transport.AuthBearer
	} else {
		cfg.AuthMode = transport.AuthCertificate
	}
	return cfg
}
