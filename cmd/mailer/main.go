package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/yukikurage/deliverynote-api/internal/config"
	"github.com/yukikurage/deliverynote-api/internal/mail"
	"github.com/yukikurage/deliverynote-api/internal/obs"
)

// Consumes queued emails published by the API and delivers them over SMTP.
func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	prefetch := pflag.Int("prefetch", 4, "unacknowledged deliveries held at once")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		obs.NewLogger(false).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := obs.NewLogger(cfg.IsRelease())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	worker := mail.NewWorker(mail.WorkerConfig{
		RabbitURL: cfg.RabbitURL,
		Exchange:  cfg.MailExchange,
		Queue:     cfg.MailQueue,
		Prefetch:  *prefetch,
		Consumer:  cfg.ServiceName + "-mailer",
	}, sender, log)

	if err := worker.Connect(); err != nil {
		log.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer worker.Close()

	log.Info("mail worker running", "queue", cfg.MailQueue)
	if err := worker.Run(ctx); err != nil {
		log.Error("mail worker stopped", "error", err)
		os.Exit(1)
	}
	log.Info("mail worker stopped")
}
