package queue

import (
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
	kafka "github.com/segmentio/kafka-go"
)

func StartProducer(cfg *ProducerConfig) (*kafka.Writer, error) {
	logger.Log.Info("Starting a new Kafka producer..")
	logger.Log.Infof("Kafka producer configuration: brokers=%s topic=%s", cfg.Brokers, cfg.Topic)

	writerConfig := kafka.WriterConfig{
		Brokers:    cfg.Brokers,
		Topic:      cfg.Topic,
		BatchSize:  cfg.BatchSize,
		BatchBytes: cfg.BatchBytes,
		Balancer:   &kafka.LeastBytes{},
	}

	if cfg.SaslConfig != nil {
		kafkaDialer, err := saslDialer(cfg.SaslConfig)
		if err != nil {
			logger.LogError("Failed to create a new Kafka dialer", err)
			return nil, err
		}
		writerConfig.Dialer = kafkaDialer
	}

	if cfg.Balancer == "hash" {
		writerConfig.Balancer = &kafka.Hash{}
	}

	w := kafka.NewWriter(writerConfig)

	logger.Log.Info("Producing messages to topic: ", cfg.Topic)

	return w, nil
}
