package rabbitmq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// DefaultExchange is the topic exchange marketplace events are published on.
const DefaultExchange = "ecofinds.events"

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex // guards channel publishes
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string
}

// NewClient connects to RabbitMQ and declares the events exchange.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	logrus.WithField("exchange", cfg.Exchange).Info("RabbitMQ client connected")

	return &Client{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
	}, nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish marshals payload to JSON and publishes it under routingKey.
func (c *Client) Publish(routingKey string, payload interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event to JSON: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		c.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logrus.WithField("routing_key", routingKey).Debug("Sent event")
	return nil
}

// Consume binds a durable queue to the events exchange for each pattern and
// hands every delivery to handler. A handler error requeues the message.
func (c *Client) Consume(queueName string, patterns []string, handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := c.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue for consuming: %w", err)
	}
	for _, pattern := range patterns {
		if err := c.channel.QueueBind(queue.Name, pattern, c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s to %s: %w", queue.Name, pattern, err)
		}
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logrus.WithFields(logrus.Fields{"queue": queue.Name, "patterns": patterns}).Info("Waiting for events")

	go func() {
		for msg := range msgs {
			entry := logrus.WithFields(logrus.Fields{"routing_key": msg.RoutingKey, "tag": msg.DeliveryTag})
			if err := handler(msg); err != nil {
				entry.WithError(err).Error("Error processing message")
				// Requeue once; redelivered messages that fail again are dropped.
				if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
					entry.WithError(nackErr).Error("Error nacking message")
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				entry.WithError(ackErr).Error("Error acking message")
			}
		}
	}()

	return nil
}

// LogEvent is a handler that records each event it receives.
func LogEvent(msg amqp.Delivery) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	logrus.WithField("routing_key", msg.RoutingKey).WithFields(logrus.Fields(payload)).Info("Received event")
	return nil
}
