package main

import (
	"context"

	"go.uber.org/zap"

	config "github.com/NordCoder/Sitewatch/internal/config/sitewatch"
	"github.com/NordCoder/Sitewatch/internal/repository/kafka"
)

type kafkaHandles struct {
	Events *kafka.SiteEventsKafka
	// Requests is nil unless check requests are consumed.
	Requests *kafka.Consumer
	closers  []func() error
}

func (k *kafkaHandles) Close() {
	for _, c := range k.closers {
		_ = c()
	}
}

func initKafka(ctx context.Context, cfg *config.Config, logger *zap.Logger) *kafkaHandles {
	kc := cfg.Kafka
	status := kafka.BootstrapProducer(ctx, kc.Brokers, kc.StatusTopic, logger)
	requests := kafka.BootstrapProducer(ctx, kc.Brokers, kc.RequestTopic, logger)

	h := &kafkaHandles{
		Events:  kafka.NewSiteEventsKafka(status, requests),
		closers: []func() error{status.Close, requests.Close},
	}

	if kc.ConsumeChecks {
		cons := kafka.BootstrapConsumer(ctx, &kafka.ConsumerConfig{
			Brokers: kc.Brokers,
			GroupID: kc.GroupID,
			Topic:   kc.RequestTopic,
			Logger:  logger,
		}, logger)
		h.Requests = cons
		h.closers = append(h.closers, cons.Close)
	}
	return h
}
