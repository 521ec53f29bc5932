package queue

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
	"github.com/RedHatInsights/sync-connector/internal/platform/utils/tls_utils"

	kafka "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

func saslDialer(cfg *SaslConfig) (*kafka.Dialer, error) {

	tlsOpts := []tls_utils.TlsConfigFunc{tls_utils.WithMinVersion(tls.VersionTLS12)}
	if cfg.KafkaCA != "" {
		tlsOpts = append(tlsOpts, tls_utils.WithCACerts(cfg.KafkaCA))
	}

	tlsConfig, err := tls_utils.NewTlsConfig(tlsOpts...)
	if err != nil {
		logger.LogError("Unable to read kafka cert", err)
		return nil, err
	}

	var mechanism sasl.Mechanism

	switch strings.ToLower(cfg.SaslMechanism) {
	case "plain":
		mechanism = plain.Mechanism{
			Username: cfg.SaslUsername,
			Password: cfg.SaslPassword,
		}
	case "scram-sha-512":
		mechanism, err = scram.Mechanism(scram.SHA512, cfg.SaslUsername, cfg.SaslPassword)
	case "scram-sha-256":
		mechanism, err = scram.Mechanism(scram.SHA256, cfg.SaslUsername, cfg.SaslPassword)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.SaslMechanism)
	}

	if err != nil {
		logger.LogError("Failed to create SCRAM SASL mechanism", err)
		return nil, err
	}

	return &kafka.Dialer{
		Timeout:       10 * time.Second,
		DualStack:     true,
		SASLMechanism: mechanism,
		TLS:           tlsConfig,
	}, nil
}
