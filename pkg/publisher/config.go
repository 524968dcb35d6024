package publisher

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cot-protocol/cot-go/pkg/cert"
	"github.com/cot-protocol/cot-go/pkg/log"
	"github.com/cot-protocol/cot-go/pkg/transport"
)

// Transport mode names accepted in configuration files.
const (
	TransportMulticast = "multicast"
	TransportTAKServer = "takserver"
)

// Duration wraps time.Duration for YAML fields written as "500ms",
// "30s" and the like.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config describes a publisher in a YAML file.
type Config struct {
	// Transport selects "multicast" or "takserver".
	Transport string `yaml:"transport"`

	Multicast MulticastConfig `yaml:"multicast,omitempty"`
	TAKServer TAKServerConfig `yaml:"takserver,omitempty"`

	// Codec options.
	AllowInvalid bool `yaml:"allow_invalid,omitempty"`

	// LogFile enables CBOR event capture to the given path.
	LogFile string `yaml:"log_file,omitempty"`
}

// MulticastConfig configures the multicast transport.
type MulticastConfig struct {
	// Address is the group address (default 239.2.3.1:6969).
	Address string `yaml:"address,omitempty"`

	// Interface pins sending to a named network interface.
	Interface string `yaml:"interface,omitempty"`
}

// TAKServerConfig configures the TLS transport.
type TAKServerConfig struct {
	// Address is host:port of the TAK server streaming port.
	Address string `yaml:"address"`

	// ServerName overrides certificate verification name.
	ServerName string `yaml:"server_name,omitempty"`

	// IgnoreInvalid disables server certificate verification (unsafe).
	IgnoreInvalid bool `yaml:"ignore_invalid,omitempty"`

	ConnectTimeout Duration `yaml:"connect_timeout,omitempty"`

	// Client credentials, all PEM files.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// KeyPassphrase decrypts an encrypted private key.
	KeyPassphrase string `yaml:"key_passphrase,omitempty"`

	Reconnect ReconnectConfig `yaml:"reconnect,omitempty"`
}

// ReconnectConfig bounds reconnection after a mid-session drop.
// Zero values take the connection package defaults.
type ReconnectConfig struct {
	MaxAttempts       int      `yaml:"max_attempts,omitempty"`
	BackoffBase       Duration `yaml:"backoff_base,omitempty"`
	BackoffCap        Duration `yaml:"backoff_cap,omitempty"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier,omitempty"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportMulticast:
		return nil
	case TransportTAKServer:
		if c.TAKServer.Address == "" {
			return fmt.Errorf("%w: takserver.address is required", transport.ErrConfig)
		}
		if c.TAKServer.CertFile == "" || c.TAKServer.KeyFile == "" || c.TAKServer.CAFile == "" {
			return fmt.Errorf("%w: takserver cert_file, key_file and ca_file are required", transport.ErrConfig)
		}
		return nil
	case "":
		return fmt.Errorf("%w: transport is required", transport.ErrConfig)
	default:
		return fmt.Errorf("%w: unknown transport %q", transport.ErrConfig, c.Transport)
	}
}

// FromConfig builds a publisher from a validated configuration.
func FromConfig(cfg *Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var logger log.Logger
	var fileLogger *log.FileLogger
	if cfg.LogFile != "" {
		fl, err := log.NewFileLogger(cfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logger = fl
		fileLogger = fl
	}

	var t transport.Transport
	switch cfg.Transport {
	case TransportMulticast:
		var err error
		if cfg.Multicast.Interface != "" {
			t, err = transport.NewMulticastBound(cfg.Multicast.Address, cfg.Multicast.Interface)
		} else {
			t, err = transport.NewMulticast(cfg.Multicast.Address)
		}
		if err != nil {
			return nil, err
		}

	case TransportTAKServer:
		sc := cfg.TAKServer
		bundle, err := loadBundle(sc)
		if err != nil {
			return nil, err
		}
		t, err = transport.NewClient(sc.Address, bundle, transport.Config{
			ServerName:           sc.ServerName,
			IgnoreInvalid:        sc.IgnoreInvalid,
			ConnectTimeout:       time.Duration(sc.ConnectTimeout),
			MaxReconnectAttempts: sc.Reconnect.MaxAttempts,
			BackoffBase:          time.Duration(sc.Reconnect.BackoffBase),
			BackoffCap:           time.Duration(sc.Reconnect.BackoffCap),
			BackoffMultiplier:    sc.Reconnect.BackoffMultiplier,
			Logger:               logger,
		})
		if err != nil {
			return nil, err
		}
	}

	p := New(t, Options{
		AllowInvalid: cfg.AllowInvalid,
		Logger:       logger,
	})
	if fileLogger != nil {
		p.ownedLogger = fileLogger
	}
	return p, nil
}

func loadBundle(sc TAKServerConfig) (*cert.Bundle, error) {
	certSrc := cert.FromFile(sc.CertFile)
	keySrc := cert.FromFile(sc.KeyFile)
	caSrc := cert.FromFile(sc.CAFile)

	if sc.KeyPassphrase != "" {
		return cert.LoadBundleEncrypted(certSrc, keySrc, caSrc, []byte(sc.KeyPassphrase))
	}
	return cert.LoadBundle(certSrc, keySrc, caSrc)
}
