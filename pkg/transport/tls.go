package transport

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"

	"github.com/cot-protocol/cot-go/pkg/cert"
)

// DefaultTLSPort is the conventional TAK server TLS streaming port.
const DefaultTLSPort = 8089

// newClientTLSConfig builds the TLS configuration for a TAK server
// connection: the client certificate from the bundle for mutual
// authentication and the bundle's CA pool for verifying the server
// chain. TLS 1.2 is the floor; TAK server deployments commonly
// predate 1.3.
func newClientTLSConfig(bundle *cert.Bundle, addr string, cfg Config) (*tls.Config, error) {
	if bundle == nil {
		return nil, fmt.Errorf("%w: certificate bundle is required", ErrConfig)
	}

	serverName := cfg.ServerName
	if serverName == "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid server address %q: %w", ErrConfig, addr, err)
		}
		serverName = host
	}

	tlsConf := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{bundle.TLSCertificate()},
		RootCAs:      bundle.RootCAs(),
		ServerName:   serverName,
	}

	if cfg.IgnoreInvalid {
		// Unsafe escape hatch for self-signed lab servers. Make the
		// hole in the trust chain impossible to miss.
		slog.Warn("transport: server certificate verification DISABLED (IgnoreInvalid); connection is open to man-in-the-middle")
		tlsConf.InsecureSkipVerify = true
	}

	return tlsConf, nil
}
