/**
 * @description
 * This file provides the consuming side of the allocation event bus: a durable queue
 * bound to the topic exchange, with one handler per routing key. The worker intake
 * feed is its only current subscriber.
 *
 * @dependencies
 * - fmt, log: Standard Go libraries.
 * - github.com/rabbitmq/amqp091-go: The RabbitMQ client library.
 *
 * @notes
 * - Handlers return true to ack. A false return nacks with requeue, so handlers must
 *   reserve it for infrastructure failures; poison messages are acked and dropped by
 *   the handler itself.
 */
package rabbitmq

import (
	"fmt"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// EventConsumer holds the RabbitMQ connection and channel for consuming messages.
type EventConsumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewEventConsumer connects to RabbitMQ and opens a consuming channel.
func NewEventConsumer(amqpURL string) (*EventConsumer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Same bounded dial as the producer so startup does not hang indefinitely.
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &EventConsumer{conn: conn, channel: ch}, nil
}

// Subscribe declares the durable queue, binds the given routing keys on the topic
// exchange and starts delivering in a background goroutine.
func (c *EventConsumer) Subscribe(exchange, queueName string, handlers map[string]func([]byte) bool) error {
	if len(handlers) == 0 {
		return fmt.Errorf("no handlers provided for queue %s", queueName)
	}

	if err := c.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	q, err := c.channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return err
	}

	bound := make(map[string]func([]byte) bool, len(handlers))
	for routingKey, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := c.channel.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			return err
		}
		bound[routingKey] = handler
	}

	deliveries, err := c.channel.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for d := range deliveries {
			handler, ok := bound[d.RoutingKey]
			if !ok {
				log.Printf("level=warn component=rabbitmq_consumer msg=\"no handler for routing key; dropping\" queue=%s routing_key=%s", q.Name, d.RoutingKey)
				d.Ack(false)
				continue
			}
			if handler(d.Body) {
				d.Ack(false)
			} else {
				log.Printf("level=warn component=rabbitmq_consumer msg=\"handler failed; requeueing\" queue=%s routing_key=%s", q.Name, d.RoutingKey)
				d.Nack(false, true)
			}
		}
	}()

	return nil
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (c *EventConsumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
