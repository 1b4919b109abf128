package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elitestore/go-storefront/internal/config"
	"github.com/elitestore/go-storefront/internal/events"
	kafkax "github.com/elitestore/go-storefront/internal/kafka"
	"github.com/elitestore/go-storefront/internal/redisx"
	"github.com/elitestore/go-storefront/internal/worker"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	inv := &worker.Invalidator{
		Redis: rdb,
		Name:  cfg.ServiceName + "-worker",
	}

	topics := []string{events.TopicCatalogChanged, events.TopicOrderPaid}
	for _, topic := range topics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.WorkerGroup, topic, cfg.WorkerCount)
		go func(topic string, cons *kafkax.Consumer) {
			logrus.WithFields(logrus.Fields{
				"group":   cfg.WorkerGroup,
				"topic":   topic,
				"workers": cfg.WorkerCount,
			}).Info("consumer started")
			if err := cons.Start(ctx, inv.Handle); err != nil {
				logrus.WithError(err).WithField("topic", topic).Error("consumer exit")
				cancel()
			}
		}(topic, cons)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logrus.Info("shutting down consumers")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
