// Package cert loads the certificate material needed for mutually
// authenticated TAK server connections.
//
// A Bundle holds the client certificate chain, the decrypted client
// private key, and the trusted root CA pool. Each part can come from a
// file path or from in-memory PEM text (Source). Passphrase-protected
// private keys (RFC 1423 PEM or OpenSSH format) are supported through
// LoadBundleEncrypted.
//
// A Bundle is immutable once loaded and is consumed only by the TLS
// transport at connect time.
package cert
