package cert

import (
	"fmt"
	"os"
)

// Source supplies PEM data from a file path or from memory.
type Source struct {
	path string
	data []byte
}

// FromFile creates a Source that reads the given path at load time.
func FromFile(path string) Source {
	return Source{path: path}
}

// FromPEM creates a Source backed by in-memory PEM text.
func FromPEM(pem []byte) Source {
	return Source{data: pem}
}

// FromPEMString creates a Source backed by an in-memory PEM string.
func FromPEMString(pem string) Source {
	return Source{data: []byte(pem)}
}

// IsZero reports whether the source has neither a path nor data.
func (s Source) IsZero() bool {
	return s.path == "" && len(s.data) == 0
}

// load returns the PEM bytes, reading from disk if file-backed.
func (s Source) load() ([]byte, error) {
	if s.path != "" {
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrCert, s.path, err)
		}
		return data, nil
	}
	if len(s.data) == 0 {
		return nil, fmt.Errorf("%w: empty certificate source", ErrCert)
	}
	return s.data, nil
}
