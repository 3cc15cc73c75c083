package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// DeliveryQueue is the queue consumed by cmd/worker.
const DeliveryQueue = "mailing_deliveries"

// DeliveryJob is one Telegram message to deliver for a dispatched mailing.
type DeliveryJob struct {
	MailingID int    `json:"mailing_id"`
	UserID    int64  `json:"user_id"`
	Text      string `json:"text"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type"`
}

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
}

// AMQPPublisher publishes jobs to RabbitMQ. One channel per publisher; the
// server process holds a single long-lived connection.
type AMQPPublisher struct {
	ch *amqp.Channel
}

func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(
		DeliveryQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return nil, err
	}
	return &AMQPPublisher{ch: ch}, nil
}

func (p *AMQPPublisher) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.ch.Publish(
		"",
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	return p.ch.Close()
}

// InMemoryQueue is an in-process queue with retry, used for local runs and
// tests where RabbitMQ is not available.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// jobEnvelope wraps a payload with retry info
type jobEnvelope struct {
	payload    any
	retryCount int
	maxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := jobEnvelope{payload: payload, maxRetries: 3}
	for _, handler := range handlers {
		go q.processJob(handler, job)
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job jobEnvelope) {
	for job.retryCount <= job.maxRetries {
		err := handler(job.payload)
		if err == nil {
			return // ACK
		}

		job.retryCount++
		log.Printf("delivery job failed (attempt %d/%d): %v\n", job.retryCount, job.maxRetries, err)

		if job.retryCount > job.maxRetries {
			log.Printf("delivery job permanently failed after %d attempts: %+v\n", job.maxRetries, job.payload)
			return // no requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.retryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
}

var _ Queue = (*AMQPPublisher)(nil)
var _ Queue = (*InMemoryQueue)(nil)
