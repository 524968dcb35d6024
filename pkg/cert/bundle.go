package cert

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// ErrCert is the sentinel for all certificate material failures:
// missing or unreadable files, malformed PEM, passphrase mismatch, and
// key/certificate mismatch.
var ErrCert = errors.New("certificate error")

// Bundle holds the client certificate chain, its decrypted private key,
// and the trusted root CA pool. Read-only after load.
type Bundle struct {
	certificate tls.Certificate
	roots       *x509.CertPool
	leaf        *x509.Certificate
	caCerts     []*x509.Certificate
}

// LoadBundle loads a bundle whose private key is not encrypted.
func LoadBundle(certSrc, keySrc, caSrc Source) (*Bundle, error) {
	return loadBundle(certSrc, keySrc, caSrc, nil)
}

// LoadBundleEncrypted loads a bundle whose private key is protected by
// a passphrase. Both RFC 1423 encrypted PEM and OpenSSH encrypted keys
// are accepted.
func LoadBundleEncrypted(certSrc, keySrc, caSrc Source, passphrase []byte) (*Bundle, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: empty passphrase", ErrCert)
	}
	return loadBundle(certSrc, keySrc, caSrc, passphrase)
}

func loadBundle(certSrc, keySrc, caSrc Source, passphrase []byte) (*Bundle, error) {
	certPEM, err := certSrc.load()
	if err != nil {
		return nil, err
	}
	keyPEM, err := keySrc.load()
	if err != nil {
		return nil, err
	}
	caPEM, err := caSrc.load()
	if err != nil {
		return nil, err
	}

	chain, leaf, err := parseCertChain(certPEM)
	if err != nil {
		return nil, err
	}

	key, err := parsePrivateKey(keyPEM, passphrase)
	if err != nil {
		return nil, err
	}

	tlsCert := tls.Certificate{
		Certificate: chain,
		PrivateKey:  key,
		Leaf:        leaf,
	}
	if err := verifyKeyMatchesCert(leaf, key); err != nil {
		return nil, err
	}

	roots := x509.NewCertPool()
	caCerts, err := parseCertificates(caPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: root CA: %v", ErrCert, err)
	}
	if len(caCerts) == 0 {
		return nil, fmt.Errorf("%w: no CA certificate found", ErrCert)
	}
	for _, ca := range caCerts {
		roots.AddCert(ca)
	}

	return &Bundle{
		certificate: tlsCert,
		roots:       roots,
		leaf:        leaf,
		caCerts:     caCerts,
	}, nil
}

// TLSCertificate returns the client certificate for TLS handshakes.
func (b *Bundle) TLSCertificate() tls.Certificate {
	return b.certificate
}

// RootCAs returns the trusted root CA pool.
func (b *Bundle) RootCAs() *x509.CertPool {
	return b.roots
}

// Leaf returns the parsed client leaf certificate.
func (b *Bundle) Leaf() *x509.Certificate {
	return b.leaf
}

// CACertificates returns the parsed root CA certificates.
func (b *Bundle) CACertificates() []*x509.Certificate {
	out := make([]*x509.Certificate, len(b.caCerts))
	copy(out, b.caCerts)
	return out
}

// parseCertChain parses one or more PEM certificates into a DER chain,
// returning the parsed leaf (first certificate).
func parseCertChain(pemData []byte) ([][]byte, *x509.Certificate, error) {
	var chain [][]byte
	var leaf *x509.Certificate

	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		parsed, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: parsing certificate: %v", ErrCert, err)
		}
		if leaf == nil {
			leaf = parsed
		}
		chain = append(chain, block.Bytes)
	}

	if leaf == nil {
		return nil, nil, fmt.Errorf("%w: no certificate found in PEM data", ErrCert)
	}
	return chain, leaf, nil
}

// parseCertificates parses all CERTIFICATE blocks in the PEM data.
func parseCertificates(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		parsed, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, parsed)
	}
	return certs, nil
}

// parsePrivateKey parses a PEM private key, decrypting it when a
// passphrase is supplied. PKCS#8, PKCS#1 (RSA) and SEC 1 (EC) key
// formats are accepted, mirroring what TAK server enrollment hands out.
func parsePrivateKey(pemData []byte, passphrase []byte) (crypto.PrivateKey, error) {
	var key any
	var err error

	if len(passphrase) > 0 {
		key, err = ssh.ParseRawPrivateKeyWithPassphrase(pemData, passphrase)
		if err != nil {
			if errors.Is(err, x509.IncorrectPasswordError) {
				return nil, fmt.Errorf("%w: incorrect passphrase", ErrCert)
			}
			return nil, fmt.Errorf("%w: decrypting private key: %v", ErrCert, err)
		}
	} else {
		key, err = ssh.ParseRawPrivateKey(pemData)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing private key: %v", ErrCert, err)
		}
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported private key type %T", ErrCert, key)
	}
	return signer, nil
}

// verifyKeyMatchesCert checks that the private key belongs to the leaf
// certificate, so a mismatched cert/key pair fails at load time rather
// than mid-handshake.
func verifyKeyMatchesCert(leaf *x509.Certificate, key crypto.PrivateKey) error {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return fmt.Errorf("%w: private key does not implement crypto.Signer", ErrCert)
	}
	certKey, ok := leaf.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return fmt.Errorf("%w: unsupported public key type %T", ErrCert, leaf.PublicKey)
	}
	if !certKey.Equal(signer.Public()) {
		return fmt.Errorf("%w: private key does not match certificate", ErrCert)
	}
	return nil
}
