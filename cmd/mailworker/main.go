// mailworker drains the mail queue filled by the api when EMAIL_PROVIDER=amqp
// and sends each job through SES.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"oriyet/config"
	"oriyet/internal/adapters/email"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue, err := email.NewQueue(email.QueueConfig{
		URL:         cfg.Email.AMQPURL,
		QueueName:   cfg.Email.QueueName,
		MaxAttempts: cfg.Email.MaxAttempts,
		RetryDelay:  cfg.Email.RetryDelay,
	}, logger)
	if err != nil {
		logger.Error("connect mail queue", "err", err)
		os.Exit(1)
	}
	defer queue.Close()

	sender := email.NewSESMailer(email.MailerConfig{
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)

	logger.Info("mail worker started", "queue", cfg.Email.QueueName)
	if err := queue.Consume(ctx, email.NewRelay(sender, logger).Handle); err != nil {
		logger.Error("mail worker stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("mail worker stopped")
}
