// README: RabbitMQ connection and channel setup for event publishing.
package infra

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// NewRabbit dials the broker and declares a durable topic exchange for
// domain events. The caller owns both returned handles.
func NewRabbit(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}
