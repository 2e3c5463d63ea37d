package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"oriyet/internal/domain"
)

const (
	publishTimeout = 5 * time.Second

	attemptHeader      = "x-attempt"
	defaultMaxAttempts = 5
	defaultRetryDelay  = 2 * time.Second
	maxRetryDelay      = 2 * time.Minute
)

// QueueConfig holds the RabbitMQ connection used by the amqp provider.
// A failed job is retried with exponential backoff from RetryDelay and dropped
// after MaxAttempts deliveries.
type QueueConfig struct {
	URL         string
	QueueName   string
	MaxAttempts int
	RetryDelay  time.Duration
}

// MailJob is one queued email.
type MailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Queue is a durable RabbitMQ queue of mail jobs.
type Queue struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	publisher   publisher
	queue       amqp.Queue
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

func NewQueue(config QueueConfig, logger *slog.Logger) (*Queue, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	q, err := channel.QueueDeclare(
		config.QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-mode": "lazy"},
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	delay := config.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return &Queue{
		conn:        conn,
		channel:     channel,
		publisher:   channel,
		queue:       q,
		maxAttempts: maxAttempts,
		retryDelay:  delay,
		logger:      logger,
	}, nil
}

func (q *Queue) Publish(ctx context.Context, job MailJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal mail job: %w", err)
	}
	err = q.publisher.PublishWithContext(ctx, "", q.queue.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish mail job: %w", err)
	}
	return nil
}

// Consume delivers messages to handle one at a time until ctx is done or the
// channel closes. A handler error schedules a delayed retry, see retry.
func (q *Queue) Consume(ctx context.Context, handle func(body []byte) error) error {
	if err := q.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	msgs, err := q.channel.Consume(q.queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume messages: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			if err := handle(msg.Body); err != nil {
				q.retry(ctx, msg, err)
				continue
			}
			msg.Ack(false)
		}
	}
}

// retry waits out the backoff for msg and republishes it with its attempt
// count bumped. The consumer is paused while it waits. Jobs that used up their
// attempts are dropped.
func (q *Queue) retry(ctx context.Context, msg amqp.Delivery, cause error) {
	attempt := deliveryAttempt(msg.Headers) + 1
	if attempt >= q.maxAttempts {
		q.logger.Error("dropping mail job after retries", "attempts", attempt, "err", cause)
		msg.Ack(false)
		return
	}

	timer := time.NewTimer(retryDelay(q.retryDelay, attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		// Shutting down; hand it back untouched for the next worker.
		msg.Nack(false, true)
		return
	case <-timer.C:
	}

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[attemptHeader] = int32(attempt)

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err := q.publisher.PublishWithContext(pubCtx, "", q.queue.Name, false, false, amqp.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      headers,
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.Timestamp,
	})
	if err != nil {
		q.logger.Warn("failed to republish mail job, requeueing", "attempt", attempt, "err", err)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

// deliveryAttempt reads how many times the job has already failed.
func deliveryAttempt(headers amqp.Table) int {
	switch v := headers[attemptHeader].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}

// retryDelay doubles base for each failed attempt, capped at maxRetryDelay.
func retryDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return min(d, maxRetryDelay)
}

func (q *Queue) Close() error {
	return errors.Join(q.channel.Close(), q.conn.Close())
}

// queueMailer implements domain.Mailer by publishing jobs instead of sending.
type queueMailer struct {
	queue  *Queue
	logger *slog.Logger
}

func (m *queueMailer) Send(to, subject, html, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := m.queue.Publish(ctx, MailJob{To: to, Subject: subject, HTML: html, Text: text}); err != nil {
		return err
	}
	m.logger.Debug("email queued", "to", to, "subject", subject)
	return nil
}

func (m *queueMailer) Close() error {
	return m.queue.Close()
}

// Relay sends queued jobs with the wrapped mailer.
type Relay struct {
	mailer domain.Mailer
	logger *slog.Logger
}

func NewRelay(mailer domain.Mailer, logger *slog.Logger) *Relay {
	return &Relay{mailer: mailer, logger: logger}
}

// Handle sends one job. Undecodable jobs are dropped so they are not redelivered forever.
func (r *Relay) Handle(body []byte) error {
	var job MailJob
	if err := json.Unmarshal(body, &job); err != nil {
		r.logger.Error("dropping malformed mail job", "err", err)
		return nil
	}
	if job.To == "" {
		r.logger.Error("dropping mail job without recipient", "subject", job.Subject)
		return nil
	}
	if err := r.mailer.Send(job.To, job.Subject, job.HTML, job.Text); err != nil {
		r.logger.Error("mail job failed, retrying", "to", job.To, "err", err)
		return err
	}
	return nil
}
