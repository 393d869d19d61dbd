package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/cargobooking/config"
	"github.com/Domenick1991/cargobooking/internal/kafka"
	"github.com/Domenick1991/cargobooking/internal/logger"
	"github.com/Domenick1991/cargobooking/internal/notify"
	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.Log)

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal().Msg("worker needs kafka.brokers")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic)
	defer consumer.Close()

	sender := notify.NewSender()

	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.BookingEventsTopic).
		Str("group", cfg.Kafka.GroupID).
		Msg("notification worker started")

	err = consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
		event, ok := kafka.DecodeBookingEvent(msg)
		if !ok {
			return nil
		}
		if err := sender.Send(ctx, event); err != nil {
			log.Error().Err(err).Str("ref_id", event.RefID).Msg("send notification")
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("consumer stopped")
		return
	}
	log.Info().Msg("worker stopped")
}
