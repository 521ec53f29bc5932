package tls_utils

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/RedHatInsights/sync-connector/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

type TlsConfigFunc func(*tls.Config) error

// WithCACerts replaces the system roots with the PEM bundle at caCertFilePath
func WithCACerts(caCertFilePath string) TlsConfigFunc {
	return func(tlsConfig *tls.Config) error {
		logger.Log.WithFields(logrus.Fields{"ca_file": caCertFilePath}).Debug("Loading CA certificates")

		pemCerts, err := os.ReadFile(caCertFilePath)
		if err != nil {
			return err
		}

		certpool := x509.NewCertPool()
		if !certpool.AppendCertsFromPEM(pemCerts) {
			return fmt.Errorf("no certificates found in %s", caCertFilePath)
		}

		tlsConfig.RootCAs = certpool

		return nil
	}
}

func WithMinVersion(version uint16) TlsConfigFunc {
	return func(tlsConfig *tls.Config) error {
		tlsConfig.MinVersion = version
		return nil
	}
}

func WithSkipVerify() TlsConfigFunc {
	return func(tlsConfig *tls.Config) error {
		logger.Log.Warn("TLS certificate verification is disabled")

		tlsConfig.InsecureSkipVerify = true

		return nil
	}
}

func NewTlsConfig(configOpts ...TlsConfigFunc) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	for _, opt := range configOpts {
		err := opt(tlsConfig)
		if err != nil {
			return nil, err
		}
	}

	return tlsConfig, nil
}
