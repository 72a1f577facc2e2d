package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/los-rm-provisioner/config"
	"github.com/oksasatya/los-rm-provisioner/pkg/helpers"
	"github.com/oksasatya/los-rm-provisioner/pkg/mailer"
	mailtpl "github.com/oksasatya/los-rm-provisioner/pkg/mailer/templates"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// sender is the part of mailer.Mailgun the worker needs.
type sender interface {
	Send(ctx context.Context, to, subject, text, html string, tags ...string) error
}

// errPermanent marks jobs that will never succeed and must not be requeued.
var errPermanent = errors.New("permanent")

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env, os.Stderr)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	if _, err := ch.QueueDeclare(cfg.RabbitMQEmailQueue, true, false, false, false, nil); err != nil {
		logger.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			log := logger.WithFields(logrus.Fields{"message_id": msg.MessageId, "app_id": msg.AppId})
			if err := handle(ctx, mg, msg.Body); err != nil {
				requeue := !errors.Is(err, errPermanent)
				helpers.LogError(log, "email job failed", err, logrus.Fields{"requeue": requeue})
				_ = msg.Nack(false, requeue)
				continue
			}
			log.Info("email sent")
			_ = msg.Ack(false)
		}
		close(done)
	}()

	logger.Infof("email worker listening on queue=%s", cfg.RabbitMQEmailQueue)
	<-ctx.Done()
	logger.Info("shutting down...")
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// handle decodes, renders and sends one job. Decode and render failures are permanent.
func handle(ctx context.Context, s sender, body []byte) error {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return errors.Join(errPermanent, err)
	}
	helpers.NormalizeEmailJob(&job)
	if job.To == "" {
		return errors.Join(errPermanent, errors.New("job has no recipient"))
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		var err error
		subject, text, html, err = mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return errors.Join(errPermanent, err)
		}
	}

	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return s.Send(c, job.To, subject, text, html, job.Tags...)
}
