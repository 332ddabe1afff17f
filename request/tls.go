// Copyright 2021 The reqi Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/youmark/pkcs8"
)

// TLSOptions holds PEM-encoded certificate material used to configure
// the default agent for https requests.
type TLSOptions struct {
	// Cert is the PEM-encoded client certificate chain.
	Cert []byte
	// Key is the PEM-encoded private key for Cert. An encrypted PKCS#8
	// key is decrypted with Passphrase.
	Key []byte
	// Passphrase decrypts Key.
	Passphrase string
	// CA is a PEM bundle of trusted root certificates. When empty the
	// system roots are used.
	CA []byte
	// ServerName overrides the name used to verify the server
	// certificate.
	ServerName string
	// InsecureSkipVerify disables verification of the server
	// certificate chain and host name.
	InsecureSkipVerify bool
	// MinVersion is the minimum TLS version. Zero means TLS 1.2.
	MinVersion uint16
}

const encryptedKeyBlock = "ENCRYPTED PRIVATE KEY"

// Config builds a *tls.Config from o. A nil o yields a nil config,
// which selects the agent's defaults.
func (o *TLSOptions) Config() (*tls.Config, error) {
	if o == nil {
		return nil, nil
	}

	minVersion := o.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	conf := &tls.Config{
		ServerName:         o.ServerName,
		InsecureSkipVerify: o.InsecureSkipVerify,
		MinVersion:         minVersion,
	}

	if len(o.CA) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(o.CA) {
			return nil, errors.New("tls: no certificates found in CA bundle")
		}
		conf.RootCAs = pool
	}

	switch {
	case len(o.Cert) > 0 && len(o.Key) > 0:
		cert, err := o.keyPair()
		if err != nil {
			return nil, err
		}
		conf.Certificates = []tls.Certificate{cert}
	case len(o.Cert) > 0:
		return nil, errors.New("tls: certificate given without key")
	case len(o.Key) > 0:
		return nil, errors.New("tls: key given without certificate")
	}

	return conf, nil
}

func (o *TLSOptions) keyPair() (tls.Certificate, error) {
	block, _ := pem.Decode(o.Key)
	if block == nil {
		return tls.Certificate{}, errors.New("tls: no PEM data found in key")
	}
	if block.Type != encryptedKeyBlock {
		return tls.X509KeyPair(o.Cert, o.Key)
	}

	if o.Passphrase == "" {
		return tls.Certificate{}, errors.New("tls: encrypted key requires a passphrase")
	}
	key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(o.Passphrase))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tls: decrypt key: %w", err)
	}

	var cert tls.Certificate
	rest := o.Cert
	for {
		var certBlock *pem.Block
		certBlock, rest = pem.Decode(rest)
		if certBlock == nil {
			break
		}
		if certBlock.Type == "CERTIFICATE" {
			cert.Certificate = append(cert.Certificate, certBlock.Bytes)
		}
	}
	if len(cert.Certificate) == 0 {
		return tls.Certificate{}, errors.New("tls: no certificates found in cert")
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tls: parse certificate: %w", err)
	}
	cert.Leaf = leaf
	cert.PrivateKey = key
	return cert, nil
}
