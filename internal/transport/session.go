// Package transport holds connection configuration, builds authenticated
// requests (mutual-TLS or bearer), and issues rate-limited, retrying HTTP
// calls against the Repository, plus the engine JSON-RPC-over-websocket
// session. It abstracts away local-vs-remote execution detail the way the
// teacher's session package abstracts local vs. distributed execution.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"resty.dev/v3"
)

// AuthMode selects how requests authenticate against the Repository.
type AuthMode int

const (
	AuthCertificate AuthMode = iota
	AuthBearer
)

// Config holds connection configuration: host, ports, virtual-proxy prefix,
// TLS verification mode, schema version, and credentials.
type Config struct {
	Host           string
	EnginePort     int // default 4747
	RepoPort       int // default 4242
	VirtualProxy   string
	Secure         bool // false disables server certificate verification
	SchemaVersion  string

	AuthMode   AuthMode
	CertFile   string
	KeyFile    string
	RootCAFile string
	BearerToken string
}

// DefaultConfig returns a Config with the documented default ports.
func DefaultConfig() Config {
	return Config{EnginePort: 4747, RepoPort: 4242, Secure: true, SchemaVersion: "12.612.0"}
}

// RepoBaseURL is the Repository's base URL for this configuration.
func (c Config) RepoBaseURL() string {
	return fmt.Sprintf("https://%s:%d%s", c.Host, c.RepoPort, c.VirtualProxy)
}

// EngineBaseURL is the Engine's websocket base URL for this configuration.
func (c Config) EngineBaseURL() string {
	return fmt.Sprintf("wss://%s:%d%s", c.Host, c.EnginePort, c.VirtualProxy)
}

// Session is a single Ctrl-Q run's connection to a QSEoW cluster. It is not
// safe to share across goroutines; each caller should hold its own Session
// or serialize access externally.
type Session struct {
	cfg    Config
	client *Client
}

// NewSession builds a Session and its underlying REST transport, loading
// certificate material eagerly so configuration errors surface before any
// network I/O (per §7, configuration errors are fatal before I/O).
func NewSession(cfg Config) (*Session, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("build transport client: %w", err)
	}
	return &Session{cfg: cfg, client: client}, nil
}

// Client returns the REST transport for Repository calls.
func (s *Session) Client() *Client { return s.client }

// Config returns the session's connection configuration.
func (s *Session) Config() Config { return s.cfg }

// Close releases any resources held by the session.
func (s *Session) Close(ctx context.Context) error {
	s.client.rc.Close()
	return nil
}

func newClient(cfg Config) (*Client, error) {
	rc := resty.New()
	rc.SetBaseURL(cfg.RepoBaseURL())
	rc.SetTimeout(30 * time.Second)

	tlsCfg := &tls.Config{InsecureSkipVerify: !cfg.Secure}

	switch cfg.AuthMode {
	case AuthCertificate:
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
		if cfg.RootCAFile != "" {
			pool := x509.NewCertPool()
			pem, err := os.ReadFile(cfg.RootCAFile)
			if err != nil {
				return nil, fmt.Errorf("read root certificate: %w", err)
			}
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("root certificate file %q contains no usable certificates", cfg.RootCAFile)
			}
			tlsCfg.RootCAs = pool
		}
	case AuthBearer:
		if cfg.BearerToken == "" {
			return nil, fmt.Errorf("bearer auth selected but no token configured")
		}
		rc.SetAuthToken(cfg.BearerToken)
	}
	rc.SetTLSClientConfig(tlsCfg)

	return &Client{rc: rc, cfg: cfg}, nil
}
