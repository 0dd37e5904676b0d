package storage

import (
	"archive/zip"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/segmentio/encoding/json"
)

var ErrBadBundle = errors.New("invalid secure connect bundle")

// Bundle is the client side of a mutually authenticated store connection,
// read from a secure connect bundle archive.
type Bundle struct {
	TLS *tls.Config

	// Host and Port are empty when the archive carries no config.json
	Host string
	Port int
}

type bundleEndpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoadBundle reads a zip archive holding the CA certificate (ca.crt), the
// client certificate (cert) and its private key (key).
func LoadBundle(path string) (*Bundle, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening bundle %s: %w", path, err)
	}
	defer archive.Close()

	ca, err := readEntry(archive, "ca.crt")
	if err != nil {
		return nil, err
	}
	cert, err := readEntry(archive, "cert")
	if err != nil {
		return nil, err
	}
	key, err := readEntry(archive, "key")
	if err != nil {
		return nil, err
	}

	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("%w: ca.crt holds no certificates", ErrBadBundle)
	}

	pair, err := tls.X509KeyPair(cert, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadBundle, err)
	}

	bundle := &Bundle{
		TLS: &tls.Config{
			RootCAs:      roots,
			Certificates: []tls.Certificate{pair},
			MinVersion:   tls.VersionTLS12,
		},
	}

	endpoint, err := readEntry(archive, "config.json")
	if errors.Is(err, fs.ErrNotExist) {
		return bundle, nil
	}
	if err != nil {
		return nil, err
	}

	ep := bundleEndpoint{}
	if err := json.Unmarshal(endpoint, &ep); err != nil {
		return nil, fmt.Errorf("%w: config.json: %w", ErrBadBundle, err)
	}

	bundle.Host = ep.Host
	bundle.Port = ep.Port
	bundle.TLS.ServerName = ep.Host

	return bundle, nil
}

func readEntry(archive *zip.ReadCloser, name string) ([]byte, error) {
	f, err := archive.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadBundle, name, err)
	}
	defer f.Close()

	return io.ReadAll(f)
}
